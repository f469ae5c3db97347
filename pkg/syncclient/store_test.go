package syncclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProjects(s *ProjectStore, ids ...string) {
	list := make([]Project, 0, len(ids))
	for _, id := range ids {
		list = append(list, Project{ID: id, Name: "Project " + id, Status: "pending"})
	}
	s.Replace(list)
}

func createdPayload(id, name string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(
		`{"project":{"id":%q,"name":%q,"status":"pending"},"userId":"u1","userName":"Bob"}`, id, name))
}

func TestProjectStore_CreatedInserts(t *testing.T) {
	s := NewProjectStore(nil, WithStoreLogger(quietLogger()))
	seedProjects(s, "p1")

	s.handleCreated(createdPayload("p2", "New deck"))

	list := s.Projects()
	require.Len(t, list, 2)
	assert.Equal(t, "p1", list[0].ID)
	assert.Equal(t, "p2", list[1].ID)
	assert.Equal(t, "New deck", list[1].Name)
}

func TestProjectStore_CreatedIdempotent(t *testing.T) {
	s := NewProjectStore(nil, WithStoreLogger(quietLogger()))

	s.handleCreated(createdPayload("p1", "Deck"))
	s.handleCreated(createdPayload("p1", "Deck"))

	assert.Len(t, s.Projects(), 1)
}

func TestProjectStore_UpdatedMergesPresentFieldsOnly(t *testing.T) {
	s := NewProjectStore(nil, WithStoreLogger(quietLogger()))
	s.Replace([]Project{{ID: "p1", Name: "Deck", Description: "keep me", Status: "pending"}})

	s.handleUpdated(json.RawMessage(
		`{"project":{"id":"p1","name":"Deck v2","status":"in_progress"},"userId":"u1"}`))

	got, ok := s.Get("p1")
	require.True(t, ok)
	assert.Equal(t, "Deck v2", got.Name)
	assert.Equal(t, "in_progress", got.Status)
	assert.Equal(t, "keep me", got.Description)
}

func TestProjectStore_UpdatedStatusOnlyPayload(t *testing.T) {
	s := NewProjectStore(nil, WithStoreLogger(quietLogger()))
	seedProjects(s, "p1")

	s.handleUpdated(json.RawMessage(`{"projectId":"p1","newStatus":"completed"}`))

	got, ok := s.Get("p1")
	require.True(t, ok)
	assert.Equal(t, "completed", got.Status)
}

func TestProjectStore_UpdatedUnknownProjectIsNoop(t *testing.T) {
	s := NewProjectStore(nil, WithStoreLogger(quietLogger()))
	seedProjects(s, "p1")

	s.handleUpdated(json.RawMessage(`{"project":{"id":"ghost","name":"x"}}`))

	assert.Len(t, s.Projects(), 1)
}

func TestProjectStore_Deleted(t *testing.T) {
	s := NewProjectStore(nil, WithStoreLogger(quietLogger()))
	seedProjects(s, "p1", "p2", "p3")

	s.handleDeleted(json.RawMessage(`{"projectId":"p2","projectName":"Project p2"}`))

	list := s.Projects()
	require.Len(t, list, 2)
	assert.Equal(t, "p1", list[0].ID)
	assert.Equal(t, "p3", list[1].ID)

	// deleting again is harmless
	s.handleDeleted(json.RawMessage(`{"projectId":"p2"}`))
	assert.Len(t, s.Projects(), 2)
}

func TestProjectStore_MaterialEventsDebounceIntoOneFetch(t *testing.T) {
	var fetches atomic.Int32
	fetch := func(ctx context.Context) ([]Project, error) {
		fetches.Add(1)
		return []Project{{ID: "p1", Name: "Fresh", Status: "in_progress"}}, nil
	}
	s := NewProjectStore(fetch, WithDebounce(20*time.Millisecond), WithStoreLogger(quietLogger()))
	seedProjects(s, "p1")

	for i := 0; i < 5; i++ {
		s.handleMaterialChanged(json.RawMessage(
			fmt.Sprintf(`{"projectId":"p1","materialId":"m%d","newStatus":"completed"}`, i)))
	}

	assert.Eventually(t, func() bool { return fetches.Load() == 1 }, time.Second, 5*time.Millisecond)

	// the burst collapsed into exactly one fetch
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), fetches.Load())

	got, ok := s.Get("p1")
	require.True(t, ok)
	assert.Equal(t, "Fresh", got.Name)
}

func TestProjectStore_BatchEventTriggersRefetch(t *testing.T) {
	var fetches atomic.Int32
	fetch := func(ctx context.Context) ([]Project, error) {
		fetches.Add(1)
		return nil, nil
	}
	s := NewProjectStore(fetch, WithDebounce(10*time.Millisecond), WithStoreLogger(quietLogger()))

	s.handleMaterialChanged(json.RawMessage(
		`{"projectId":"p1","materialIds":["m1","m2"],"newStatus":"completed"}`))

	assert.Eventually(t, func() bool { return fetches.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestProjectStore_OptimisticMarkerSuppressesRefetch(t *testing.T) {
	var fetches atomic.Int32
	fetch := func(ctx context.Context) ([]Project, error) {
		fetches.Add(1)
		return nil, nil
	}
	s := NewProjectStore(fetch, WithDebounce(10*time.Millisecond), WithStoreLogger(quietLogger()))

	s.MarkOptimistic("material-status-changed", "m1")
	s.handleMaterialChanged(json.RawMessage(`{"projectId":"p1","materialId":"m1"}`))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), fetches.Load())

	// the marker is consumed: the same material changing again refetches
	s.handleMaterialChanged(json.RawMessage(`{"projectId":"p1","materialId":"m1"}`))
	assert.Eventually(t, func() bool { return fetches.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestProjectStore_OptimisticMarkerSuppressesEcho(t *testing.T) {
	s := NewProjectStore(nil, WithStoreLogger(quietLogger()))

	s.MarkOptimistic("project-created", "p1")
	s.handleCreated(createdPayload("p1", "Deck"))
	assert.Empty(t, s.Projects())

	s.handleCreated(createdPayload("p1", "Deck"))
	assert.Len(t, s.Projects(), 1)
}

func TestProjectStore_OnChange(t *testing.T) {
	s := NewProjectStore(nil, WithStoreLogger(quietLogger()))
	var changes atomic.Int32
	s.OnChange(func() { changes.Add(1) })

	s.handleCreated(createdPayload("p1", "Deck"))
	s.handleDeleted(json.RawMessage(`{"projectId":"p1"}`))
	s.handleDeleted(json.RawMessage(`{"projectId":"p1"}`)) // no-op, no callback

	assert.Equal(t, int32(2), changes.Load())
}

func TestProjectStore_BindAndDetach(t *testing.T) {
	c := New("http://localhost", WithLogger(quietLogger()))
	s := NewProjectStore(nil, WithStoreLogger(quietLogger()))
	detach := s.Bind(c)

	env := func(event, ts, data string) []byte {
		return []byte(fmt.Sprintf(`{"type":%q,"data":%s,"timestamp":%q}`, event, data, ts))
	}
	c.dispatch("project-created", env("project-created", "t1",
		`{"project":{"id":"p1","name":"Deck","status":"pending"}}`))
	require.Len(t, s.Projects(), 1)

	detach()
	c.dispatch("project-created", env("project-created", "t2",
		`{"project":{"id":"p2","name":"Other","status":"pending"}}`))
	assert.Len(t, s.Projects(), 1)
}
