package capture

import "context"

// RawEvent is one intercepted request/response pair, consumed once. The JSON
// shape matches the interception proxy's dump format; body fields are
// base64-coded on the wire.
type RawEvent struct {
	URL             string `json:"url"`
	TransportID     string `json:"transport_id,omitempty"`
	RequestBody     []byte `json:"request_body,omitempty"`
	Body            []byte `json:"body,omitempty"`
	ContentEncoding string `json:"content_encoding,omitempty"`
	StatusCode      int    `json:"status_code,omitempty"`
}

// Source yields intercepted events. The capture session polls Drain
// repeatedly; implementations return whatever accumulated since the previous
// call and may re-deliver events (the deduplicator handles repeats).
type Source interface {
	Drain(ctx context.Context) ([]RawEvent, error)
}

// Scroller drives page scrolling to provoke more network traffic. Optional;
// sessions run without one when scrolling is external.
type Scroller interface {
	ScrollBy(ctx context.Context, pixels int) error
}
