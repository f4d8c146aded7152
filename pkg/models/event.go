package models

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// WebhookEvent is the immutable envelope for one webhook delivery. The raw
// body is kept as received so signature verification always runs over the
// exact bytes; the JSON payload is parsed lazily, exactly once.
type WebhookEvent struct {
	ID         string      `json:"id"`
	Provider   Provider    `json:"provider"`
	Headers    http.Header `json:"-"`
	RawBody    []byte      `json:"-"`
	ReceivedAt time.Time   `json:"received_at"`

	parseOnce  sync.Once
	payload    map[string]interface{}
	payloadErr error
}

func NewWebhookEvent(id string, provider Provider, headers http.Header, rawBody []byte) *WebhookEvent {
	if headers == nil {
		headers = http.Header{}
	}
	return &WebhookEvent{
		ID:         id,
		Provider:   provider,
		Headers:    headers,
		RawBody:    rawBody,
		ReceivedAt: time.Now(),
	}
}

// Header returns the named header value, case-insensitively. Empty string
// when absent.
func (e *WebhookEvent) Header(name string) string {
	if e.Headers == nil {
		return ""
	}
	return e.Headers.Get(name)
}

// EventType returns the provider's event kind: the event-type header where
// the provider sends one, otherwise the payload "type" field (Gerrit).
func (e *WebhookEvent) EventType() string {
	cap := CapabilityOf(e.Provider)
	if cap.EventHeader != "" {
		return e.Header(cap.EventHeader)
	}
	return e.StringField("type")
}

// Payload parses the raw body as a JSON object. The parse happens once; the
// result (or the parse error) is reused on every later call.
func (e *WebhookEvent) Payload() (map[string]interface{}, error) {
	e.parseOnce.Do(func() {
		if len(e.RawBody) == 0 {
			e.payloadErr = fmt.Errorf("empty request body")
			return
		}
		var parsed map[string]interface{}
		if err := json.Unmarshal(e.RawBody, &parsed); err != nil {
			e.payloadErr = fmt.Errorf("malformed JSON body: %w", err)
			return
		}
		e.payload = parsed
	})
	return e.payload, e.payloadErr
}

// Field walks a dotted path ("pull_request.head.sha") through the parsed
// payload. Numeric segments index into arrays. Returns false when any
// segment is missing or the body failed to parse.
func (e *WebhookEvent) Field(path string) (interface{}, bool) {
	payload, err := e.Payload()
	if err != nil {
		return nil, false
	}
	var current interface{} = payload
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]interface{}:
			value, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = value
		case []interface{}:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(node) {
				return nil, false
			}
			current = node[index]
		default:
			return nil, false
		}
	}
	return current, true
}

// StringField returns the string at path, coercing JSON numbers and booleans
// to their text form. Empty string when absent or unrepresentable.
func (e *WebhookEvent) StringField(path string) string {
	value, ok := e.Field(path)
	if !ok {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// BoolField returns the boolean at path, false when absent or not a bool.
func (e *WebhookEvent) BoolField(path string) bool {
	value, ok := e.Field(path)
	if !ok {
		return false
	}
	b, ok := value.(bool)
	return ok && b
}

// HeaderMap flattens the request headers into a single-valued map with
// lowercase keys, the shape predicate expressions evaluate against.
func (e *WebhookEvent) HeaderMap() map[string]string {
	flat := make(map[string]string, len(e.Headers))
	for name, values := range e.Headers {
		if len(values) > 0 {
			flat[strings.ToLower(name)] = values[0]
		}
	}
	return flat
}

func ValidateWebhookEvent(e *WebhookEvent) error {
	if e == nil {
		return &ValidationError{Field: "event", Message: "webhook event cannot be nil"}
	}
	if e.ID == "" {
		return &ValidationError{Field: "id", Message: "event ID is required"}
	}
	if !e.Provider.Valid() {
		return &ValidationError{Field: "provider", Message: fmt.Sprintf("unknown provider %q", e.Provider)}
	}
	if len(e.RawBody) == 0 {
		return &ValidationError{Field: "body", Message: "request body cannot be empty"}
	}
	return nil
}
