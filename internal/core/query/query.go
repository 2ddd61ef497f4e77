// Package query implements the read-only views spec.md §4.F specifies:
// the ready queue, the blocked queue, search, history playback, and
// per-agent status. None of these mutate state, so every operation here
// runs inside a single store.View — grounded on the same store.Txn.Range
// prefix-scan idiom used throughout internal/core/store.
package query

import (
	"errors"
	"sort"
	"strings"

	"github.com/secemp9/jari/internal/core/codec"
	"github.com/secemp9/jari/internal/core/graph"
	"github.com/secemp9/jari/internal/core/model"
	"github.com/secemp9/jari/internal/core/store"
)

// Service answers read-only questions about the current database state.
type Service struct {
	store *store.Store
}

func New(s *store.Store) *Service { return &Service{store: s} }

// byReadyOrder sorts by (priority ascending, created_at ascending, id
// ascending) — spec.md §4.F's exact comparator, reused by Ready and Search.
func byReadyOrder(todos []model.Todo) {
	sort.SliceStable(todos, func(i, j int) bool {
		a, b := todos[i], todos[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func loadAllTodos(tx *store.Txn) ([]model.Todo, error) {
	var todos []model.Todo
	err := tx.Range(store.SubTodos, "", func(key string, value []byte) error {
		t, err := codec.DecodeTodo(value)
		if err != nil {
			return err
		}
		todos = append(todos, t)
		return nil
	})
	return todos, err
}

func isWorkable(status model.Status) bool {
	return status == model.StatusOpen || status == model.StatusInProgress
}

// Ready returns workable todos with no active blockers, sorted per
// byReadyOrder. Calling it twice with no intervening mutation is
// idempotent by construction: it recomputes from committed state only.
func (s *Service) Ready() ([]model.Todo, error) {
	var ready []model.Todo
	err := s.store.View(func(tx *store.Txn) error {
		todos, err := loadAllTodos(tx)
		if err != nil {
			return err
		}
		for _, t := range todos {
			if !isWorkable(t.Status) {
				continue
			}
			active, err := graph.ActiveBlockersOf(tx, t.ID)
			if err != nil {
				return err
			}
			if len(active) == 0 {
				ready = append(ready, t)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	byReadyOrder(ready)
	return ready, nil
}

// BlockedEntry pairs a blocked todo with the active blockers holding it back.
type BlockedEntry struct {
	Todo     model.Todo
	Blockers []BlockerStatus
}

// BlockerStatus names one active blocker's current lifecycle status.
type BlockerStatus struct {
	ID     string
	Status model.Status
}

// Blocked returns workable todos that do have active blockers, along
// with each blocker's id and status.
func (s *Service) Blocked() ([]BlockedEntry, error) {
	var entries []BlockedEntry
	err := s.store.View(func(tx *store.Txn) error {
		todos, err := loadAllTodos(tx)
		if err != nil {
			return err
		}
		byID := make(map[string]model.Todo, len(todos))
		for _, t := range todos {
			byID[t.ID] = t
		}
		for _, t := range todos {
			if !isWorkable(t.Status) {
				continue
			}
			active, err := graph.ActiveBlockersOf(tx, t.ID)
			if err != nil {
				return err
			}
			if len(active) == 0 {
				continue
			}
			entry := BlockedEntry{Todo: t}
			for _, id := range active {
				entry.Blockers = append(entry.Blockers, BlockerStatus{ID: id, Status: byID[id].Status})
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Todo.ID < entries[j].Todo.ID })
	return entries, nil
}

// Search performs a case-insensitive substring match against title,
// description, and labels, returning matches in ready-queue order.
func (s *Service) Search(query string) ([]model.Todo, error) {
	var matches []model.Todo
	q := strings.ToLower(query)
	err := s.store.View(func(tx *store.Txn) error {
		todos, err := loadAllTodos(tx)
		if err != nil {
			return err
		}
		for _, t := range todos {
			if strings.Contains(strings.ToLower(t.Title), q) || strings.Contains(strings.ToLower(t.Description), q) {
				matches = append(matches, t)
				continue
			}
			for _, l := range t.Labels {
				if strings.Contains(strings.ToLower(l), q) {
					matches = append(matches, t)
					break
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	byReadyOrder(matches)
	return matches, nil
}

// History returns every snapshot recorded for id, ordered by version
// ascending.
func (s *Service) History(id string) ([]model.HistoryEntry, error) {
	var entries []model.HistoryEntry
	err := s.store.View(func(tx *store.Txn) error {
		return tx.Range(store.SubHistory, codec.HistoryPrefix(id), func(key string, value []byte) error {
			e, err := codec.DecodeHistoryEntry(value)
			if err != nil {
				return err
			}
			entries = append(entries, e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Version < entries[j].Version })
	return entries, nil
}

// AgentStatus is the answer to "what is agent doing right now".
type AgentStatus struct {
	Agent     model.AgentRecord
	Assigned  []model.Todo
	Conflicts []model.Conflict
	Recent    []model.HistoryEntry
}

// Agent reports pending conflicts, currently assigned todos, and the
// last n history snapshots authored by agent.
func (s *Service) Agent(agent string, n int) (AgentStatus, error) {
	var status AgentStatus
	err := s.store.View(func(tx *store.Txn) error {
		raw, err := tx.Get(store.SubMeta, codec.AgentKey(agent))
		switch {
		case err == nil:
			rec, err := codec.DecodeAgentRecord(raw)
			if err != nil {
				return err
			}
			status.Agent = rec
		case errors.Is(err, model.ErrNotFound):
			// an agent with no registry entry yet still has a well-defined
			// (empty) status.
		default:
			return err
		}

		todos, err := loadAllTodos(tx)
		if err != nil {
			return err
		}
		var recent []model.HistoryEntry
		for _, t := range todos {
			if t.Assignee == agent {
				status.Assigned = append(status.Assigned, t)
			}
			conflicts, err := s.conflictsForAgent(tx, t.ID, agent)
			if err != nil {
				return err
			}
			status.Conflicts = append(status.Conflicts, conflicts...)

			err = tx.Range(store.SubHistory, codec.HistoryPrefix(t.ID), func(key string, value []byte) error {
				e, err := codec.DecodeHistoryEntry(value)
				if err != nil {
					return err
				}
				if e.Agent == agent {
					recent = append(recent, e)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		sort.Slice(recent, func(i, j int) bool { return recent[i].Timestamp.Before(recent[j].Timestamp) })
		if n > 0 && len(recent) > n {
			recent = recent[len(recent)-n:]
		}
		status.Recent = recent
		return nil
	})
	return status, err
}

// KnownAgents returns every agent name that has an entry in the agent
// registry, sorted alphabetically.
func (s *Service) KnownAgents() ([]string, error) {
	var names []string
	err := s.store.View(func(tx *store.Txn) error {
		return tx.Range(store.SubMeta, codec.AgentPrefix, func(key string, value []byte) error {
			rec, err := codec.DecodeAgentRecord(value)
			if err != nil {
				return err
			}
			names = append(names, rec.Name)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// ConflictEntry pairs a pending conflict with the todo it belongs to, for
// views that list conflicts across the whole database.
type ConflictEntry struct {
	TodoID   string
	Conflict model.Conflict
}

// Conflicts lists every pending conflict across every todo, optionally
// narrowed to those raised by agent, ordered by todo id then sequence.
func (s *Service) Conflicts(agent string) ([]ConflictEntry, error) {
	var entries []ConflictEntry
	err := s.store.View(func(tx *store.Txn) error {
		todos, err := loadAllTodos(tx)
		if err != nil {
			return err
		}
		for _, t := range todos {
			err := tx.Range(store.SubMeta, codec.ConflictPrefixForTodo(t.ID), func(key string, value []byte) error {
				c, err := codec.DecodeConflict(value)
				if err != nil {
					return err
				}
				if agent != "" && c.Agent != agent {
					return nil
				}
				entries = append(entries, ConflictEntry{TodoID: t.ID, Conflict: c})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TodoID != entries[j].TodoID {
			return entries[i].TodoID < entries[j].TodoID
		}
		return entries[i].Conflict.Seq < entries[j].Conflict.Seq
	})
	return entries, nil
}

func (s *Service) conflictsForAgent(tx *store.Txn, todoID, agent string) ([]model.Conflict, error) {
	var out []model.Conflict
	err := tx.Range(store.SubMeta, codec.ConflictPrefixForTodo(todoID), func(key string, value []byte) error {
		c, err := codec.DecodeConflict(value)
		if err != nil {
			return err
		}
		if c.Agent == agent {
			out = append(out, c)
		}
		return nil
	})
	return out, err
}
