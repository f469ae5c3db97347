package hub

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_FrameLayout(t *testing.T) {
	frame, err := Encode("project-created", map[string]string{"projectId": "p1"})
	require.NoError(t, err)

	text := string(frame)
	require.True(t, strings.HasPrefix(text, "event: project-created\ndata: "))
	require.True(t, strings.HasSuffix(text, "\n\n"))

	payload := strings.TrimSuffix(strings.TrimPrefix(text, "event: project-created\ndata: "), "\n\n")
	var env struct {
		Type      string          `json:"type"`
		Data      json.RawMessage `json:"data"`
		Timestamp string          `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal([]byte(payload), &env))

	assert.Equal(t, "project-created", env.Type)
	assert.JSONEq(t, `{"projectId":"p1"}`, string(env.Data))

	ts, err := time.Parse(time.RFC3339Nano, env.Timestamp)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), ts, time.Minute)
}

func TestEncode_NilPayload(t *testing.T) {
	frame, err := Encode("heartbeat", nil)
	require.NoError(t, err)
	assert.Contains(t, string(frame), `"data":null`)
}

func TestEncode_UnserializablePayload(t *testing.T) {
	_, err := Encode("project-created", make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project-created")
}
