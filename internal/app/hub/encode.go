package hub

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"fabtrack/internal/core/domain"
)

// Encode serializes one event into its wire frame:
//
//	event: <name>\ndata: {"type":...,"data":...,"timestamp":...}\n\n
//
// The timestamp is captured here, once per event, so every recipient of a
// single broadcast sees the identical value. A payload that cannot be
// marshalled is a caller bug and is reported as an error rather than being
// silently truncated.
func Encode(event string, payload any) ([]byte, error) {
	env := domain.Envelope{
		Type:      event,
		Data:      payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode %q event: %w", event, err)
	}

	var buf bytes.Buffer
	buf.Grow(len(event) + len(data) + 16)
	buf.WriteString("event: ")
	buf.WriteString(event)
	buf.WriteString("\ndata: ")
	buf.Write(data)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}
