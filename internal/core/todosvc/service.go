// Package todosvc implements the public todo operations from spec.md
// §4.E: each exported method runs exactly one store transaction and
// composes the graph, concurrency, and codec packages beneath it.
// Grounded on the teacher's internal/commands/cmd_todo.go call shape
// (thin methods, one per verb, each returning a plain result or error
// for the CLI layer to render) even though the underlying storage and
// concurrency model is entirely new.
package todosvc

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/secemp9/jari/internal/core/codec"
	"github.com/secemp9/jari/internal/core/concurrency"
	"github.com/secemp9/jari/internal/core/graph"
	"github.com/secemp9/jari/internal/core/model"
	"github.com/secemp9/jari/internal/core/store"
	"github.com/secemp9/jari/internal/validate"
)

// Service is the entry point every CLI command calls through.
type Service struct {
	store           *store.Store
	now             func() time.Time
	defaultPriority int
}

// New wraps s. now defaults to time.Now; tests may override it via
// NewWithClock for deterministic timestamps.
func New(s *store.Store) *Service {
	return &Service{store: s, now: time.Now, defaultPriority: model.DefaultPriority}
}

// NewWithClock is New with an injectable clock, used by tests that need
// to control created_at/updated_at values.
func NewWithClock(s *store.Store, now func() time.Time) *Service {
	return &Service{store: s, now: now, defaultPriority: model.DefaultPriority}
}

// SetDefaultPriority overrides the priority Create assigns when the caller
// doesn't name one, per config's default_priority tunable.
func (s *Service) SetDefaultPriority(p int) { s.defaultPriority = p }

func loadTodo(tx *store.Txn, id string) (model.Todo, error) {
	raw, err := tx.Get(store.SubTodos, codec.TodoKey(id))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Todo{}, &model.NotFoundError{ID: id}
		}
		return model.Todo{}, err
	}
	return codec.DecodeTodo(raw)
}

func saveTodo(tx *store.Txn, t model.Todo) error {
	raw, err := codec.EncodeTodo(t)
	if err != nil {
		return err
	}
	return tx.Put(store.SubTodos, codec.TodoKey(t.ID), raw)
}

func appendHistory(tx *store.Txn, t model.Todo, agent, operation string, now time.Time) error {
	entry := model.HistoryEntry{Todo: t.Clone(), Version: t.Version, Agent: agent, Operation: operation, Timestamp: now}
	raw, err := codec.EncodeHistoryEntry(entry)
	if err != nil {
		return err
	}
	return tx.Put(store.SubHistory, codec.HistoryKey(t.ID, t.Version), raw)
}

func nextTodoID(tx *store.Txn) (string, error) {
	raw, err := tx.Get(store.SubMeta, codec.CounterTodoIDKey)
	n := 0
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			return "", err
		}
	} else {
		n, err = codec.DecodeCounter(raw)
		if err != nil {
			return "", err
		}
	}
	n++
	if err := tx.Put(store.SubMeta, codec.CounterTodoIDKey, codec.EncodeCounter(n)); err != nil {
		return "", err
	}
	return fmt.Sprintf("todo_%d", n), nil
}

// CreateInput are the caller-supplied fields for Create; zero values mean
// "use the default" per spec.md §4.E's create row. Tagged for JSON so it
// doubles as the schema for create's --file/--stdin batch input.
type CreateInput struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Priority    *int   `json:"priority,omitempty"`
	Type        string `json:"type,omitempty"`
	ParentID    string `json:"parent_id,omitempty"`
	NiwaRef     string `json:"niwa_ref,omitempty"`
}

// Create validates in and appends a new todo at version 1.
func (s *Service) Create(agent string, in CreateInput) (model.Todo, error) {
	if err := validate.TitleField("title", in.Title); err != nil {
		return model.Todo{}, &model.InvalidInputError{Field: "title", Reason: err.Error()}
	}
	priority := s.defaultPriority
	if in.Priority != nil {
		priority = *in.Priority
	}
	if err := validate.PriorityField("priority", priority); err != nil {
		return model.Todo{}, &model.InvalidInputError{Field: "priority", Reason: err.Error()}
	}

	var result model.Todo
	err := s.store.Update(func(tx *store.Txn) error {
		if in.ParentID != "" {
			if _, err := loadTodo(tx, in.ParentID); err != nil {
				return err
			}
		}

		id, err := nextTodoID(tx)
		if err != nil {
			return err
		}
		now := s.now()
		t := model.Todo{
			ID: id, Title: in.Title, Description: in.Description, Status: model.StatusOpen,
			Priority: priority, Type: in.Type, ParentID: in.ParentID,
			Version: 1, CreatedAt: now, UpdatedAt: now, CreatedBy: agent, UpdatedBy: agent,
		}
		if in.NiwaRef != "" {
			t.NiwaRefs = []string{in.NiwaRef}
		}
		if err := saveTodo(tx, t); err != nil {
			return err
		}
		if err := appendHistory(tx, t, agent, "create", now); err != nil {
			return err
		}
		result = t
		return nil
	})
	return result, err
}

// ShowResult is what Show returns: the record plus its currently active
// blockers, matching spec.md §4.E's "record + active blockers" result.
type ShowResult struct {
	Todo           model.Todo
	ActiveBlockers []string
}

// Show performs the concurrency engine's read path (recording the
// agent's pending-read version) and reports the record's active blockers.
func (s *Service) Show(agent, id string) (ShowResult, error) {
	var result ShowResult
	err := s.store.Update(func(tx *store.Txn) error {
		t, err := concurrency.Read(tx, agent, id, s.now())
		if err != nil {
			return err
		}
		active, err := graph.ActiveBlockersOf(tx, id)
		if err != nil {
			return err
		}
		result = ShowResult{Todo: t, ActiveBlockers: active}
		return nil
	})
	return result, err
}

// Filter narrows List's results; zero-valued fields are unconstrained.
type Filter struct {
	Status   model.Status
	Assignee string
	Label    string
	Type     string
	ParentID string
}

func (f Filter) matches(t model.Todo) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Assignee != "" && t.Assignee != f.Assignee {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.ParentID != "" && t.ParentID != f.ParentID {
		return false
	}
	if f.Label != "" {
		found := false
		for _, l := range t.Labels {
			if l == f.Label {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// List returns every todo matching filter, ordered by id ascending.
func (s *Service) List(filter Filter) ([]model.Todo, error) {
	var todos []model.Todo
	err := s.store.View(func(tx *store.Txn) error {
		return tx.Range(store.SubTodos, "", func(key string, value []byte) error {
			t, err := codec.DecodeTodo(value)
			if err != nil {
				return err
			}
			if filter.matches(t) {
				todos = append(todos, t)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(todos, func(i, j int) bool { return todos[i].ID < todos[j].ID })
	return todos, nil
}

// Store exposes the underlying store for the query package, which reads
// the same transactions but sorts and filters with different rules than
// List's plain id-ascending order.
func (s *Service) Store() *store.Store { return s.store }
