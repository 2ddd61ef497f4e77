package todosvc

import (
	"github.com/secemp9/jari/internal/core/codec"
	"github.com/secemp9/jari/internal/core/concurrency"
	"github.com/secemp9/jari/internal/core/graph"
	"github.com/secemp9/jari/internal/core/model"
	"github.com/secemp9/jari/internal/core/store"
)

// Close sets status to closed. Unblocking children is a pure query-time
// property (spec.md §4.F "cascading unblock is a query property, not a
// stored one") — Close itself only records the transition.
func (s *Service) Close(agent, id, reason string) (model.Todo, error) {
	var result model.Todo
	err := s.store.Update(func(tx *store.Txn) error {
		t, err := loadTodo(tx, id)
		if err != nil {
			return err
		}
		now := s.now()
		t.Status = model.StatusClosed
		t.Reason = reason
		t.Version++
		t.UpdatedAt = now
		t.UpdatedBy = agent
		if err := saveTodo(tx, t); err != nil {
			return err
		}
		if err := appendHistory(tx, t, agent, "close", now); err != nil {
			return err
		}
		result = t
		return nil
	})
	return result, err
}

// Reopen sets status back to open. It requires the todo to currently be
// closed (spec.md §4.E's NotClosed error).
func (s *Service) Reopen(agent, id string) (model.Todo, error) {
	var result model.Todo
	err := s.store.Update(func(tx *store.Txn) error {
		t, err := loadTodo(tx, id)
		if err != nil {
			return err
		}
		if t.Status != model.StatusClosed {
			return model.ErrNotClosed
		}
		now := s.now()
		t.Status = model.StatusOpen
		t.Version++
		t.UpdatedAt = now
		t.UpdatedBy = agent
		if err := saveTodo(tx, t); err != nil {
			return err
		}
		if err := appendHistory(tx, t, agent, "reopen", now); err != nil {
			return err
		}
		result = t
		return nil
	})
	return result, err
}

// Delete removes id and cascades removal from every reverse index that
// references it: children's blocked_by entries and the blocks/ reverse
// index in both directions.
func (s *Service) Delete(agent, id string) error {
	return s.store.Update(func(tx *store.Txn) error {
		t, err := loadTodo(tx, id)
		if err != nil {
			return err
		}

		for _, parent := range t.BlockedBy {
			if err := graph.RemoveEdge(tx, id, parent); err != nil {
				return err
			}
		}
		children, err := childrenBlockedBy(tx, id)
		if err != nil {
			return err
		}
		for _, child := range children {
			if err := graph.RemoveEdge(tx, child, id); err != nil {
				return err
			}
		}

		return tx.Delete(store.SubTodos, id)
	})
}

func childrenBlockedBy(tx *store.Txn, parent string) ([]string, error) {
	var todos []model.Todo
	err := tx.Range(store.SubTodos, "", func(key string, value []byte) error {
		t, err := codec.DecodeTodo(value)
		if err != nil {
			return err
		}
		todos = append(todos, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	var children []string
	for _, t := range todos {
		for _, b := range t.BlockedBy {
			if b == parent {
				children = append(children, t.ID)
				break
			}
		}
	}
	return children, nil
}

// Claim performs the atomic claim per spec.md §4.D.
func (s *Service) Claim(agent, id string) (model.Todo, error) {
	var result model.Todo
	err := s.store.Update(func(tx *store.Txn) error {
		t, err := concurrency.Claim(tx, agent, id, s.now())
		if err != nil {
			return err
		}
		result = t
		return nil
	})
	return result, err
}

// AddLabel and RemoveLabel mutate the labels set directly; they don't go
// through the pending-read conflict engine because they're idempotent,
// commutative, single-element operations with no meaningful "conflict".
func (s *Service) AddLabel(agent, id, label string) (model.Todo, error) {
	return s.mutateLabels(agent, id, label, true)
}

func (s *Service) RemoveLabel(agent, id, label string) (model.Todo, error) {
	return s.mutateLabels(agent, id, label, false)
}

func (s *Service) mutateLabels(agent, id, label string, add bool) (model.Todo, error) {
	var result model.Todo
	err := s.store.Update(func(tx *store.Txn) error {
		t, err := loadTodo(tx, id)
		if err != nil {
			return err
		}
		labels := t.Labels
		has := contains(labels, label)
		if add == has {
			result = t
			return nil // no-op
		}
		if add {
			labels = append(append([]string(nil), labels...), label)
		} else {
			labels = removeFrom(labels, label)
		}
		t.Labels = labels
		now := s.now()
		t.Version++
		t.UpdatedAt = now
		t.UpdatedBy = agent
		if err := saveTodo(tx, t); err != nil {
			return err
		}
		op := "label_remove"
		if add {
			op = "label_add"
		}
		if err := appendHistory(tx, t, agent, op, now); err != nil {
			return err
		}
		result = t
		return nil
	})
	return result, err
}

// Link and Unlink mutate the niwa_refs set, following the same
// direct-mutation policy as labels.
func (s *Service) Link(agent, id, niwaNodeID string) (model.Todo, error) {
	return s.mutateNiwaRefs(agent, id, niwaNodeID, true)
}

func (s *Service) Unlink(agent, id, niwaNodeID string) (model.Todo, error) {
	return s.mutateNiwaRefs(agent, id, niwaNodeID, false)
}

func (s *Service) mutateNiwaRefs(agent, id, ref string, add bool) (model.Todo, error) {
	var result model.Todo
	err := s.store.Update(func(tx *store.Txn) error {
		t, err := loadTodo(tx, id)
		if err != nil {
			return err
		}
		refs := t.NiwaRefs
		has := contains(refs, ref)
		if add == has {
			result = t
			return nil
		}
		if add {
			refs = append(append([]string(nil), refs...), ref)
		} else {
			refs = removeFrom(refs, ref)
		}
		t.NiwaRefs = refs
		now := s.now()
		t.Version++
		t.UpdatedAt = now
		t.UpdatedBy = agent
		if err := saveTodo(tx, t); err != nil {
			return err
		}
		op := "unlink"
		if add {
			op = "link"
		}
		if err := appendHistory(tx, t, agent, op, now); err != nil {
			return err
		}
		result = t
		return nil
	})
	return result, err
}

// AddDep and RemoveDep expose the graph edge operations at the service
// layer, each in its own transaction.
func (s *Service) AddDep(child, parent string) error {
	return s.store.Update(func(tx *store.Txn) error {
		return graph.AddEdge(tx, child, parent)
	})
}

func (s *Service) RemoveDep(child, parent string) error {
	return s.store.Update(func(tx *store.Txn) error {
		return graph.RemoveEdge(tx, child, parent)
	})
}

// DepTree returns the transitive dependency view for id in dir.
func (s *Service) DepTree(id string, dir graph.Direction) (*graph.Node, error) {
	var node *graph.Node
	err := s.store.View(func(tx *store.Txn) error {
		var err error
		node, err = graph.Tree(tx, id, dir)
		return err
	})
	return node, err
}

func contains(items []string, target string) bool {
	for _, it := range items {
		if it == target {
			return true
		}
	}
	return false
}

func removeFrom(items []string, target string) []string {
	out := items[:0:0]
	for _, it := range items {
		if it != target {
			out = append(out, it)
		}
	}
	return out
}
