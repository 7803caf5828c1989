package track

import "strings"

// The helpers below navigate decoded JSON payloads without ever panicking.
// Missing keys, nil branches, and type mismatches all collapse to zero values.

func getMap(value any, keys ...string) map[string]any {
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

func getList(value any, keys ...string) []any {
	if len(keys) == 0 {
		list, _ := value.([]any)
		return list
	}
	parent := getMap(value, keys[:len(keys)-1]...)
	if parent == nil {
		return nil
	}
	list, _ := parent[keys[len(keys)-1]].([]any)
	return list
}

func getString(value any, keys ...string) string {
	if len(keys) == 0 {
		s, _ := value.(string)
		return strings.TrimSpace(s)
	}
	parent := getMap(value, keys[:len(keys)-1]...)
	if parent == nil {
		return ""
	}
	s, _ := parent[keys[len(keys)-1]].(string)
	return strings.TrimSpace(s)
}

func getInt(value any, keys ...string) int {
	parent := getMap(value, keys[:len(keys)-1]...)
	if parent == nil {
		return 0
	}
	switch v := parent[keys[len(keys)-1]].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}
