package syncclient

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationCenter_Add(t *testing.T) {
	n := NewNotificationCenter()

	ok := n.Add(Notification{ID: "n1", Level: LevelInfo, Title: "New project", Message: "Bob created \"Deck\""})
	assert.True(t, ok)
	require.Len(t, n.List(), 1)
	assert.False(t, n.List()[0].Timestamp.IsZero())
}

func TestNotificationCenter_Dedup(t *testing.T) {
	base := time.Now()

	tests := []struct {
		name  string
		first Notification
		next  Notification
		want  bool
	}{
		{
			name:  "same id rejected",
			first: Notification{ID: "n1", Title: "A", Message: "x", Timestamp: base},
			next:  Notification{ID: "n1", Title: "B", Message: "y", Timestamp: base},
			want:  false,
		},
		{
			name:  "same text within window rejected",
			first: Notification{ID: "n1", Title: "A", Message: "x", Timestamp: base},
			next:  Notification{ID: "n2", Title: "A", Message: "x", Timestamp: base.Add(500 * time.Millisecond)},
			want:  false,
		},
		{
			name:  "same text after window accepted",
			first: Notification{ID: "n1", Title: "A", Message: "x", Timestamp: base},
			next:  Notification{ID: "n2", Title: "A", Message: "x", Timestamp: base.Add(2 * time.Second)},
			want:  true,
		},
		{
			name:  "different text within window accepted",
			first: Notification{ID: "n1", Title: "A", Message: "x", Timestamp: base},
			next:  Notification{ID: "n2", Title: "A", Message: "y", Timestamp: base.Add(100 * time.Millisecond)},
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNotificationCenter()
			require.True(t, n.Add(tt.first))
			assert.Equal(t, tt.want, n.Add(tt.next))
		})
	}
}

func TestNotificationCenter_AutoDismiss(t *testing.T) {
	n := NewNotificationCenter()
	n.Add(Notification{ID: "n1", Title: "A", Message: "x", Duration: 20 * time.Millisecond})
	n.Add(Notification{ID: "n2", Title: "B", Message: "y"})

	assert.Eventually(t, func() bool {
		list := n.List()
		return len(list) == 1 && list[0].ID == "n2"
	}, time.Second, 5*time.Millisecond)
}

func TestNotificationCenter_Dismiss(t *testing.T) {
	n := NewNotificationCenter()
	n.Add(Notification{ID: "n1", Title: "A", Message: "x"})
	n.Add(Notification{ID: "n2", Title: "B", Message: "y"})

	n.Dismiss("n1")
	n.Dismiss("ghost")

	list := n.List()
	require.Len(t, list, 1)
	assert.Equal(t, "n2", list[0].ID)

	n.Clear()
	assert.Empty(t, n.List())
}

func TestNotificationCenter_OnAdd(t *testing.T) {
	n := NewNotificationCenter()
	var added atomic.Int32
	n.OnAdd(func(Notification) { added.Add(1) })

	n.Add(Notification{ID: "n1", Title: "A", Message: "x"})
	n.Add(Notification{ID: "n1", Title: "A", Message: "x"}) // duplicate, no callback

	assert.Equal(t, int32(1), added.Load())
}

func TestNotificationCenter_BindProjectEvents(t *testing.T) {
	c := New("http://localhost", WithLogger(quietLogger()))
	n := NewNotificationCenter()
	detach := n.BindProjectEvents(c)

	env := func(event, ts, data string) []byte {
		return []byte(fmt.Sprintf(`{"type":%q,"data":%s,"timestamp":%q}`, event, data, ts))
	}

	c.dispatch("project-created", env("project-created", "t1",
		`{"projectName":"Deck","userId":"u1","userName":"Bob"}`))
	c.dispatch("project-status-changed", env("project-status-changed", "t2",
		`{"project":{"id":"p1","name":"Deck"},"newStatus":"in_progress","userName":"Bob"}`))
	c.dispatch("project-deleted", env("project-deleted", "t3",
		`{"projectId":"p1","projectName":"Deck","userName":"Bob"}`))

	list := n.List()
	require.Len(t, list, 3)
	assert.Equal(t, LevelInfo, list[0].Level)
	assert.Equal(t, `Bob created "Deck"`, list[0].Message)
	assert.Equal(t, LevelSuccess, list[1].Level)
	assert.Equal(t, `Bob moved "Deck" to In Progress`, list[1].Message)
	assert.Equal(t, LevelWarning, list[2].Level)
	assert.Equal(t, `Bob deleted "Deck"`, list[2].Message)

	detach()
	c.dispatch("project-created", env("project-created", "t4",
		`{"projectName":"Other","userName":"Bob"}`))
	assert.Len(t, n.List(), 3)
}
