// Package graph implements the blocked_by dependency graph: edge mutation
// with cycle rejection, blocker queries, and the tree view used by `dep
// tree`. Grounded on the sentinel-error-plus-DFS style of
// jinterlante1206-AleutianLocal/cmd/aleutian/internal/graph, adapted here
// to walk todo records through a store.Txn instead of an in-memory graph.
package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/secemp9/jari/internal/core/codec"
	"github.com/secemp9/jari/internal/core/model"
	"github.com/secemp9/jari/internal/core/store"
)

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

// Reachable reports whether to is reachable from from by following
// outgoing blocked_by edges. It is the same traversal AddEdge uses for
// its cycle check; nothing else in this module calls it.
func Reachable(tx *store.Txn, from, to string) (bool, error) {
	return isReachable(tx, from, to)
}

// isReachable performs a depth-first traversal of outgoing blocked_by
// edges starting at from, reporting whether to is reachable — spec.md
// §4.C's exact cycle test.
func isReachable(tx *store.Txn, from, to string) (bool, error) {
	visited := make(map[string]bool)
	var dfs func(id string) (bool, error)
	dfs = func(id string) (bool, error) {
		if id == to {
			return true, nil
		}
		if visited[id] {
			return false, nil
		}
		visited[id] = true

		t, err := loadTodo(tx, id)
		if err != nil {
			if errors.As(err, new(*model.NotFoundError)) {
				return false, nil
			}
			return false, err
		}
		for _, b := range t.BlockedBy {
			ok, err := dfs(b)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
	return dfs(from)
}

// AddEdge records that child is blocked by parent. Both sides — the
// child's blocked_by list and the parent's reverse blocks/ index — are
// updated in the same transaction the caller supplies.
func AddEdge(tx *store.Txn, child, parent string) error {
	if child == parent {
		return fmt.Errorf("%w: todo %q cannot block itself", model.ErrSelfEdge, child)
	}

	if _, err := loadTodo(tx, parent); err != nil {
		return err
	}
	childTodo, err := loadTodo(tx, child)
	if err != nil {
		return err
	}

	reachable, err := isReachable(tx, parent, child)
	if err != nil {
		return err
	}
	if reachable {
		return &model.CycleDetectedError{Child: child, Parent: parent, Path: []string{parent, child}}
	}

	if !contains(childTodo.BlockedBy, parent) {
		childTodo.BlockedBy = append(childTodo.BlockedBy, parent)
		sort.Strings(childTodo.BlockedBy)
		if err := saveTodo(tx, childTodo); err != nil {
			return err
		}
	}
	return tx.Put(store.SubMeta, codec.BlocksKey(parent, child), []byte{})
}

// RemoveEdge deletes the parent->child dependency. It is idempotent: a
// missing edge, or even a missing child, is not an error.
func RemoveEdge(tx *store.Txn, child, parent string) error {
	childTodo, err := loadTodo(tx, child)
	if err != nil {
		if errors.As(err, new(*model.NotFoundError)) {
			return tx.Delete(store.SubMeta, codec.BlocksKey(parent, child))
		}
		return err
	}

	if contains(childTodo.BlockedBy, parent) {
		childTodo.BlockedBy = removeFrom(childTodo.BlockedBy, parent)
		if err := saveTodo(tx, childTodo); err != nil {
			return err
		}
	}
	return tx.Delete(store.SubMeta, codec.BlocksKey(parent, child))
}

// BlockersOf returns child's blocked_by list verbatim.
func BlockersOf(tx *store.Txn, id string) ([]string, error) {
	t, err := loadTodo(tx, id)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), t.BlockedBy...), nil
}

// ActiveBlockersOf returns the subset of BlockersOf(id) whose status is
// not closed.
func ActiveBlockersOf(tx *store.Txn, id string) ([]string, error) {
	blockers, err := BlockersOf(tx, id)
	if err != nil {
		return nil, err
	}

	var active []string
	for _, b := range blockers {
		bt, err := loadTodo(tx, b)
		if err != nil {
			if errors.As(err, new(*model.NotFoundError)) {
				continue // dangling blocker reference: tolerated per spec's dangling-reference note
			}
			return nil, err
		}
		if bt.Status != model.StatusClosed {
			active = append(active, b)
		}
	}
	return active, nil
}

// Direction selects which way Tree walks the dependency graph.
type Direction string

const (
	// DirectionBlockers walks ancestors: everything transitively blocking id.
	DirectionBlockers Direction = "blockers"
	// DirectionBlocked walks descendants: everything transitively blocked by id.
	DirectionBlocked Direction = "blocked"
)

// Node is one entry in a Tree view.
type Node struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Status   string  `json:"status"`
	Children []*Node `json:"children,omitempty"`
}

// Tree returns the transitive closure of id's dependency graph in dir.
// Invariant 2 (acyclic blocked_by) means no visited-set is strictly
// required, but Tree defends against a corrupted graph anyway rather than
// looping forever.
func Tree(tx *store.Txn, id string, dir Direction) (*Node, error) {
	visited := make(map[string]bool)
	var walk func(id string) (*Node, error)
	walk = func(id string) (*Node, error) {
		t, err := loadTodo(tx, id)
		if err != nil {
			return nil, err
		}
		node := &Node{ID: t.ID, Title: t.Title, Status: string(t.Status)}
		if visited[id] {
			return node, nil
		}
		visited[id] = true

		var childIDs []string
		switch dir {
		case DirectionBlockers:
			childIDs = t.BlockedBy
		case DirectionBlocked:
			childIDs, err = childrenOf(tx, id)
			if err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: unknown tree direction %q", model.ErrInvalidInput, dir)
		}

		sort.Strings(childIDs)
		for _, cid := range childIDs {
			child, err := walk(cid)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
		}
		return node, nil
	}
	return walk(id)
}

// childrenOf scans the reverse blocks/ index for everything parent
// directly blocks.
func childrenOf(tx *store.Txn, parent string) ([]string, error) {
	var children []string
	prefix := codec.BlocksPrefixForParent(parent)
	err := tx.Range(store.SubMeta, prefix, func(key string, value []byte) error {
		child := key[len(prefix):]
		children = append(children, child)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return children, nil
}
