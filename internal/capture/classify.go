package capture

import "encoding/json"

// Paging carries the pagination counters a page declares about itself.
// Recorded for observability only; offset continuity is not enforced.
type Paging struct {
	Limit  int
	Offset int
	Total  int
	Items  int
}

// Page is one classified playlist items page.
type Page struct {
	Items  []any
	Paging Paging
}

const playlistPageTypename = "PlaylistItemsPage"

// classifyPage decides whether a decoded payload is a page of the target
// collection and, if so, extracts its item array and pagination counters.
func classifyPage(body []byte) (*Page, bool) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, false
	}

	content := dig(payload, "data", "playlistV2", "content")
	if content == nil {
		return nil, false
	}
	typename, _ := content["__typename"].(string)
	if typename != playlistPageTypename {
		return nil, false
	}

	items, _ := content["items"].([]any)
	page := &Page{Items: items}
	if paging := dig(content, "pagingInfo"); paging != nil {
		page.Paging = Paging{
			Limit:  intAt(paging, "limit"),
			Offset: intAt(paging, "offset"),
			Total:  intAt(paging, "totalCount"),
			Items:  len(items),
		}
	} else {
		page.Paging.Items = len(items)
	}
	return page, true
}

func dig(value any, keys ...string) map[string]any {
	current, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	for _, key := range keys {
		next, ok := current[key].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return current
}

func intAt(m map[string]any, key string) int {
	if f, ok := m[key].(float64); ok {
		return int(f)
	}
	return 0
}
