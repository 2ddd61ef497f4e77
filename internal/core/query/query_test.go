package query_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secemp9/jari/internal/core/model"
	"github.com/secemp9/jari/internal/core/query"
	"github.com/secemp9/jari/internal/core/store"
	"github.com/secemp9/jari/internal/core/todosvc"
)

func newTestService(t *testing.T) (*todosvc.Service, *query.Service) {
	t.Helper()
	s, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return todosvc.New(s), query.New(s)
}

func TestReadyIdempotence(t *testing.T) {
	svc, q := newTestService(t)
	_, err := svc.Create("agent-a", todosvc.CreateInput{Title: "A"})
	require.NoError(t, err)

	first, err := q.Ready()
	require.NoError(t, err)
	second, err := q.Ready()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDependencyChainReadyProgression(t *testing.T) {
	svc, q := newTestService(t)
	t1, err := svc.Create("agent-a", todosvc.CreateInput{Title: "one"})
	require.NoError(t, err)
	t2, err := svc.Create("agent-a", todosvc.CreateInput{Title: "two"})
	require.NoError(t, err)
	t3, err := svc.Create("agent-a", todosvc.CreateInput{Title: "three"})
	require.NoError(t, err)

	require.NoError(t, svc.AddDep(t2.ID, t1.ID))
	require.NoError(t, svc.AddDep(t3.ID, t2.ID))

	ready, err := q.Ready()
	require.NoError(t, err)
	assertIDs(t, ready, t1.ID)

	_, err = svc.Close("agent-a", t1.ID, "")
	require.NoError(t, err)
	ready, err = q.Ready()
	require.NoError(t, err)
	assertIDs(t, ready, t2.ID)

	_, err = svc.Close("agent-a", t2.ID, "")
	require.NoError(t, err)
	ready, err = q.Ready()
	require.NoError(t, err)
	assertIDs(t, ready, t3.ID)
}

func assertIDs(t *testing.T, todos []model.Todo, want ...string) {
	t.Helper()
	var got []string
	for _, td := range todos {
		got = append(got, td.ID)
	}
	assert.Equal(t, want, got)
}

func TestReadyOrdersByPriorityBeforeCreationOrder(t *testing.T) {
	s, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := todosvc.NewWithClock(s, func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	})
	q := query.New(s)

	p2 := 2
	p0 := 0
	_, err = svc.Create("a", todosvc.CreateInput{Title: "low priority first", Priority: &p2})
	require.NoError(t, err)
	_, err = svc.Create("a", todosvc.CreateInput{Title: "high priority second", Priority: &p0})
	require.NoError(t, err)

	ready, err := q.Ready()
	require.NoError(t, err)
	require.Len(t, ready, 2)
	assert.Equal(t, "todo_2", ready[0].ID, "priority 0 sorts before priority 2 regardless of creation order")
}

func TestBlockedListsActiveBlockers(t *testing.T) {
	svc, q := newTestService(t)
	parent, err := svc.Create("a", todosvc.CreateInput{Title: "parent"})
	require.NoError(t, err)
	child, err := svc.Create("a", todosvc.CreateInput{Title: "child"})
	require.NoError(t, err)
	require.NoError(t, svc.AddDep(child.ID, parent.ID))

	blocked, err := q.Blocked()
	require.NoError(t, err)
	require.Len(t, blocked, 1)
	assert.Equal(t, child.ID, blocked[0].Todo.ID)
	require.Len(t, blocked[0].Blockers, 1)
	assert.Equal(t, parent.ID, blocked[0].Blockers[0].ID)
}

func TestSearchMatchesTitleDescriptionAndLabels(t *testing.T) {
	svc, q := newTestService(t)
	_, err := svc.Create("a", todosvc.CreateInput{Title: "fix the parser", Description: "handles edge cases"})
	require.NoError(t, err)
	tagged, err := svc.Create("a", todosvc.CreateInput{Title: "unrelated"})
	require.NoError(t, err)
	_, err = svc.AddLabel("a", tagged.ID, "parser-adjacent")
	require.NoError(t, err)

	results, err := q.Search("parser")
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestHistoryOrderedByVersion(t *testing.T) {
	svc, q := newTestService(t)
	created, err := svc.Create("a", todosvc.CreateInput{Title: "one"})
	require.NoError(t, err)
	_, err = svc.Close("a", created.ID, "done")
	require.NoError(t, err)

	hist, err := q.History(created.ID)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, 1, hist[0].Version)
	assert.Equal(t, 2, hist[1].Version)
}
