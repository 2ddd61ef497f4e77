package concurrency_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secemp9/jari/internal/core/codec"
	"github.com/secemp9/jari/internal/core/concurrency"
	"github.com/secemp9/jari/internal/core/model"
	"github.com/secemp9/jari/internal/core/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var clock = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func seedTodo(t *testing.T, s *store.Store, todo model.Todo) {
	t.Helper()
	todo.Version = 1
	todo.CreatedAt = clock
	todo.UpdatedAt = clock
	err := s.Update(func(tx *store.Txn) error {
		raw, err := codec.EncodeTodo(todo)
		if err != nil {
			return err
		}
		if err := tx.Put(store.SubTodos, codec.TodoKey(todo.ID), raw); err != nil {
			return err
		}
		entry := model.HistoryEntry{Todo: todo, Version: 1, Agent: todo.CreatedBy, Operation: "create", Timestamp: clock}
		raw, err = codec.EncodeHistoryEntry(entry)
		if err != nil {
			return err
		}
		return tx.Put(store.SubHistory, codec.HistoryKey(todo.ID, 1), raw)
	})
	require.NoError(t, err)
}

func ptr[T any](v T) *T { return &v }

func TestAutoMergeDisjointFieldsCommute(t *testing.T) {
	s := newTestStore(t)
	seedTodo(t, s, model.Todo{ID: "todo_1", Title: "orig", Priority: 3, Status: model.StatusOpen})

	err := s.Update(func(tx *store.Txn) error {
		_, err := concurrency.Read(tx, "agent-a", "todo_1", clock)
		return err
	})
	require.NoError(t, err)
	err = s.Update(func(tx *store.Txn) error {
		_, err := concurrency.Read(tx, "agent-b", "todo_1", clock)
		return err
	})
	require.NoError(t, err)

	err = s.Update(func(tx *store.Txn) error {
		_, err := concurrency.Update(tx, "agent-a", "todo_1", model.Changes{Priority: ptr(0)}, clock)
		return err
	})
	require.NoError(t, err)

	var result concurrency.Result
	err = s.Update(func(tx *store.Txn) error {
		var err error
		result, err = concurrency.Update(tx, "agent-b", "todo_1", model.Changes{Title: ptr("X")}, clock)
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Todo.Priority)
	assert.Equal(t, "X", result.Todo.Title)
	assert.Equal(t, 3, result.Todo.Version)
	assert.Empty(t, result.Conflicts)
}

func TestSameFieldConflictThenAcceptYours(t *testing.T) {
	s := newTestStore(t)
	seedTodo(t, s, model.Todo{ID: "todo_1", Title: "orig", Priority: 3, Status: model.StatusOpen})

	err := s.Update(func(tx *store.Txn) error {
		_, err := concurrency.Read(tx, "agent-a", "todo_1", clock)
		return err
	})
	require.NoError(t, err)
	err = s.Update(func(tx *store.Txn) error {
		_, err := concurrency.Read(tx, "agent-b", "todo_1", clock)
		return err
	})
	require.NoError(t, err)

	err = s.Update(func(tx *store.Txn) error {
		_, err := concurrency.Update(tx, "agent-a", "todo_1", model.Changes{Priority: ptr(0)}, clock)
		return err
	})
	require.NoError(t, err)

	var conflictErr error
	err = s.Update(func(tx *store.Txn) error {
		_, err := concurrency.Update(tx, "agent-b", "todo_1", model.Changes{Priority: ptr(2)}, clock)
		conflictErr = err
		return nil
	})
	require.NoError(t, err)
	require.Error(t, conflictErr)
	assert.ErrorIs(t, conflictErr, model.ErrConflictPending)

	err = s.View(func(tx *store.Txn) error {
		raw, err := tx.Get(store.SubTodos, codec.TodoKey("todo_1"))
		require.NoError(t, err)
		got, err := codec.DecodeTodo(raw)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Priority, "loser's priority must not have been applied")
		return nil
	})
	require.NoError(t, err)

	var resolved model.Todo
	err = s.Update(func(tx *store.Txn) error {
		var err error
		resolved, err = concurrency.Resolve(tx, "agent-b", "todo_1", model.AcceptYours, nil, clock)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resolved.Priority)
	assert.Equal(t, 3, resolved.Version)
}

func TestResolveWithNoConflictsFails(t *testing.T) {
	s := newTestStore(t)
	seedTodo(t, s, model.Todo{ID: "todo_1", Title: "orig", Status: model.StatusOpen})

	err := s.Update(func(tx *store.Txn) error {
		_, err := concurrency.Resolve(tx, "agent-a", "todo_1", model.AcceptYours, nil, clock)
		return err
	})
	assert.ErrorIs(t, err, model.ErrNoConflicts)
}

func TestClaimRaceExactlyOneWinner(t *testing.T) {
	s := newTestStore(t)
	seedTodo(t, s, model.Todo{ID: "todo_1", Title: "orig", Status: model.StatusOpen})

	err := s.Update(func(tx *store.Txn) error {
		_, err := concurrency.Claim(tx, "agent-a", "todo_1", clock)
		return err
	})
	require.NoError(t, err)

	var loserErr error
	err = s.Update(func(tx *store.Txn) error {
		_, err := concurrency.Claim(tx, "agent-b", "todo_1", clock)
		loserErr = err
		return nil
	})
	require.NoError(t, err)
	require.Error(t, loserErr)
	var already *model.AlreadyClaimedError
	require.ErrorAs(t, loserErr, &already)
	assert.Equal(t, "agent-a", already.By)
}

func TestClaimRejectsWhenBlocked(t *testing.T) {
	s := newTestStore(t)
	seedTodo(t, s, model.Todo{ID: "todo_1", Title: "blocker", Status: model.StatusOpen})
	seedTodo(t, s, model.Todo{ID: "todo_2", Title: "blocked", Status: model.StatusOpen, BlockedBy: []string{"todo_1"}})

	err := s.Update(func(tx *store.Txn) error {
		_, err := concurrency.Claim(tx, "agent-a", "todo_2", clock)
		return err
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrNotClaimable)
}

func TestSetFieldAutoMergeCombinesDisjointAdds(t *testing.T) {
	s := newTestStore(t)
	seedTodo(t, s, model.Todo{ID: "todo_1", Title: "orig", Status: model.StatusOpen, Labels: []string{"base"}})

	err := s.Update(func(tx *store.Txn) error {
		_, err := concurrency.Read(tx, "agent-a", "todo_1", clock)
		return err
	})
	require.NoError(t, err)
	err = s.Update(func(tx *store.Txn) error {
		_, err := concurrency.Read(tx, "agent-b", "todo_1", clock)
		return err
	})
	require.NoError(t, err)

	err = s.Update(func(tx *store.Txn) error {
		_, err := concurrency.Update(tx, "agent-a", "todo_1", model.Changes{Labels: model.SetOp{Add: []string{"urgent"}}}, clock)
		return err
	})
	require.NoError(t, err)

	var result concurrency.Result
	err = s.Update(func(tx *store.Txn) error {
		var err error
		result, err = concurrency.Update(tx, "agent-b", "todo_1", model.Changes{Labels: model.SetOp{Add: []string{"backend"}}}, clock)
		return err
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"base", "urgent", "backend"}, result.Todo.Labels)
	assert.Empty(t, result.Conflicts)
}

func TestResolveDoesNotClobberExistingReason(t *testing.T) {
	s := newTestStore(t)
	seedTodo(t, s, model.Todo{ID: "todo_1", Title: "orig", Priority: 3, Status: model.StatusOpen, Reason: "waiting on design review"})

	err := s.Update(func(tx *store.Txn) error {
		_, err := concurrency.Read(tx, "agent-a", "todo_1", clock)
		return err
	})
	require.NoError(t, err)
	err = s.Update(func(tx *store.Txn) error {
		_, err := concurrency.Read(tx, "agent-b", "todo_1", clock)
		return err
	})
	require.NoError(t, err)

	err = s.Update(func(tx *store.Txn) error {
		_, err := concurrency.Update(tx, "agent-a", "todo_1", model.Changes{Priority: ptr(0)}, clock)
		return err
	})
	require.NoError(t, err)

	var conflictErr error
	err = s.Update(func(tx *store.Txn) error {
		_, err := concurrency.Update(tx, "agent-b", "todo_1", model.Changes{Priority: ptr(2)}, clock)
		conflictErr = err
		return nil
	})
	require.NoError(t, err)
	require.ErrorIs(t, conflictErr, model.ErrConflictPending)

	var resolved model.Todo
	err = s.Update(func(tx *store.Txn) error {
		var err error
		resolved, err = concurrency.Resolve(tx, "agent-b", "todo_1", model.AcceptYours, nil, clock)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "waiting on design review", resolved.Reason, "resolving a conflict must not overwrite an unrelated data field")

	err = s.View(func(tx *store.Txn) error {
		raw, err := tx.Get(store.SubHistory, codec.HistoryKey("todo_1", resolved.Version))
		require.NoError(t, err)
		entry, err := codec.DecodeHistoryEntry(raw)
		require.NoError(t, err)
		assert.Equal(t, "conflict resolved", entry.Operation)
		return nil
	})
	require.NoError(t, err)
}

func TestUpdateRejectsWhenAgentHasPendingConflict(t *testing.T) {
	s := newTestStore(t)
	seedTodo(t, s, model.Todo{ID: "todo_1", Title: "orig", Priority: 3, Status: model.StatusOpen})

	err := s.Update(func(tx *store.Txn) error {
		_, err := concurrency.Read(tx, "agent-a", "todo_1", clock)
		return err
	})
	require.NoError(t, err)
	err = s.Update(func(tx *store.Txn) error {
		_, err := concurrency.Read(tx, "agent-b", "todo_1", clock)
		return err
	})
	require.NoError(t, err)

	err = s.Update(func(tx *store.Txn) error {
		_, err := concurrency.Update(tx, "agent-a", "todo_1", model.Changes{Priority: ptr(0)}, clock)
		return err
	})
	require.NoError(t, err)

	var conflictErr error
	err = s.Update(func(tx *store.Txn) error {
		_, err := concurrency.Update(tx, "agent-b", "todo_1", model.Changes{Priority: ptr(2)}, clock)
		conflictErr = err
		return nil
	})
	require.NoError(t, err)
	require.ErrorIs(t, conflictErr, model.ErrConflictPending)

	// agent-b must resolve its pending conflict before issuing another
	// update, even one that touches an unrelated field.
	var secondErr error
	err = s.Update(func(tx *store.Txn) error {
		_, err := concurrency.Update(tx, "agent-b", "todo_1", model.Changes{Title: ptr("something else")}, clock)
		secondErr = err
		return nil
	})
	require.NoError(t, err)
	require.Error(t, secondErr)
	assert.ErrorIs(t, secondErr, model.ErrConflictPending)

	var pending *model.ConflictPendingError
	require.ErrorAs(t, secondErr, &pending)
	assert.Contains(t, pending.Fields, "priority")
}
