package todosvc_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secemp9/jari/internal/core/graph"
	"github.com/secemp9/jari/internal/core/model"
	"github.com/secemp9/jari/internal/core/store"
	"github.com/secemp9/jari/internal/core/todosvc"
)

func newService(t *testing.T) *todosvc.Service {
	t.Helper()
	s, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return todosvc.NewWithClock(s, func() time.Time { return clock })
}

func TestCreateRejectsEmptyTitle(t *testing.T) {
	svc := newService(t)
	_, err := svc.Create("agent-a", todosvc.CreateInput{Title: ""})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestCreateAssignsSequentialIDs(t *testing.T) {
	svc := newService(t)
	a, err := svc.Create("agent-a", todosvc.CreateInput{Title: "first"})
	require.NoError(t, err)
	b, err := svc.Create("agent-a", todosvc.CreateInput{Title: "second"})
	require.NoError(t, err)
	assert.Equal(t, "todo_1", a.ID)
	assert.Equal(t, "todo_2", b.ID)
}

func TestCreateUsesModelDefaultPriorityUnlessOverridden(t *testing.T) {
	svc := newService(t)
	created, err := svc.Create("agent-a", todosvc.CreateInput{Title: "untouched"})
	require.NoError(t, err)
	assert.Equal(t, model.DefaultPriority, created.Priority)
}

func TestSetDefaultPriorityChangesCreateDefault(t *testing.T) {
	svc := newService(t)
	svc.SetDefaultPriority(0)
	created, err := svc.Create("agent-a", todosvc.CreateInput{Title: "critical by config"})
	require.NoError(t, err)
	assert.Equal(t, 0, created.Priority)

	// An explicit -p still wins over the configured default.
	overridden, err := svc.Create("agent-a", todosvc.CreateInput{Title: "explicit", Priority: intPtr(4)})
	require.NoError(t, err)
	assert.Equal(t, 4, overridden.Priority)
}

func TestShowReturnsActiveBlockers(t *testing.T) {
	svc := newService(t)
	parent, err := svc.Create("a", todosvc.CreateInput{Title: "parent"})
	require.NoError(t, err)
	child, err := svc.Create("a", todosvc.CreateInput{Title: "child"})
	require.NoError(t, err)
	require.NoError(t, svc.AddDep(child.ID, parent.ID))

	result, err := svc.Show("agent-a", child.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{parent.ID}, result.ActiveBlockers)
}

func TestShowMissingReturnsNotFound(t *testing.T) {
	svc := newService(t)
	_, err := svc.Show("agent-a", "todo_missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestCloseThenReopen(t *testing.T) {
	svc := newService(t)
	created, err := svc.Create("a", todosvc.CreateInput{Title: "x"})
	require.NoError(t, err)

	closed, err := svc.Close("a", created.ID, "done for now")
	require.NoError(t, err)
	assert.Equal(t, model.StatusClosed, closed.Status)

	reopened, err := svc.Reopen("a", created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOpen, reopened.Status)
}

func TestReopenRequiresClosed(t *testing.T) {
	svc := newService(t)
	created, err := svc.Create("a", todosvc.CreateInput{Title: "x"})
	require.NoError(t, err)
	_, err = svc.Reopen("a", created.ID)
	assert.ErrorIs(t, err, model.ErrNotClosed)
}

func TestDeleteCascadesReverseIndex(t *testing.T) {
	svc := newService(t)
	parent, err := svc.Create("a", todosvc.CreateInput{Title: "parent"})
	require.NoError(t, err)
	child, err := svc.Create("a", todosvc.CreateInput{Title: "child"})
	require.NoError(t, err)
	require.NoError(t, svc.AddDep(child.ID, parent.ID))

	require.NoError(t, svc.Delete("a", parent.ID))

	_, err = svc.Show("a", parent.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	err = svc.Store().View(func(tx *store.Txn) error {
		blockers, err := graph.BlockersOf(tx, child.ID)
		require.NoError(t, err)
		assert.Empty(t, blockers, "deleting the parent must remove the dangling blocked_by reference")
		return nil
	})
	require.NoError(t, err)
}

func TestClaimAssignsAndTransitionsStatus(t *testing.T) {
	svc := newService(t)
	created, err := svc.Create("a", todosvc.CreateInput{Title: "x"})
	require.NoError(t, err)

	claimed, err := svc.Claim("agent-b", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "agent-b", claimed.Assignee)
	assert.Equal(t, model.StatusInProgress, claimed.Status)

	_, err = svc.Claim("agent-c", created.ID)
	var already *model.AlreadyClaimedError
	require.ErrorAs(t, err, &already)
	assert.Equal(t, "agent-b", already.By)
}

func TestLabelAddRemoveIsIdempotent(t *testing.T) {
	svc := newService(t)
	created, err := svc.Create("a", todosvc.CreateInput{Title: "x"})
	require.NoError(t, err)

	added, err := svc.AddLabel("a", created.ID, "urgent")
	require.NoError(t, err)
	assert.Equal(t, []string{"urgent"}, added.Labels)

	sameAgain, err := svc.AddLabel("a", created.ID, "urgent")
	require.NoError(t, err)
	assert.Equal(t, added.Version, sameAgain.Version, "re-adding an existing label must be a no-op")

	removed, err := svc.RemoveLabel("a", created.ID, "urgent")
	require.NoError(t, err)
	assert.Empty(t, removed.Labels)
}

func TestLinkUnlink(t *testing.T) {
	svc := newService(t)
	created, err := svc.Create("a", todosvc.CreateInput{Title: "x"})
	require.NoError(t, err)

	linked, err := svc.Link("a", created.ID, "h2_3")
	require.NoError(t, err)
	assert.Equal(t, []string{"h2_3"}, linked.NiwaRefs)

	unlinked, err := svc.Unlink("a", created.ID, "h2_3")
	require.NoError(t, err)
	assert.Empty(t, unlinked.NiwaRefs)
}

func TestUpdateConflictThenResolve(t *testing.T) {
	svc := newService(t)
	created, err := svc.Create("a", todosvc.CreateInput{Title: "x", Priority: intPtr(3)})
	require.NoError(t, err)

	_, err = svc.Show("agent-a", created.ID)
	require.NoError(t, err)
	_, err = svc.Show("agent-b", created.ID)
	require.NoError(t, err)

	_, err = svc.Update("agent-a", created.ID, model.Changes{Priority: intPtr(0)})
	require.NoError(t, err)

	result, err := svc.Update("agent-b", created.ID, model.Changes{Priority: intPtr(2)})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrConflictPending)
	require.Len(t, result.Conflicts, 1)

	resolved, err := svc.Resolve("agent-b", created.ID, model.AcceptYours, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, resolved.Priority)
}

func TestDepAddRejectsCycleAndSelfEdge(t *testing.T) {
	svc := newService(t)
	a, err := svc.Create("a", todosvc.CreateInput{Title: "a"})
	require.NoError(t, err)
	b, err := svc.Create("a", todosvc.CreateInput{Title: "b"})
	require.NoError(t, err)

	require.NoError(t, svc.AddDep(b.ID, a.ID))
	err = svc.AddDep(a.ID, b.ID)
	assert.ErrorIs(t, err, model.ErrCycleDetected)

	err = svc.AddDep(a.ID, a.ID)
	assert.ErrorIs(t, err, model.ErrSelfEdge)
}

func intPtr(v int) *int { return &v }
