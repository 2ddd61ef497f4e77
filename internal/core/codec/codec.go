// Package codec turns model records into the deterministic byte encodings
// stored under store's sub-store keys, and back. spec.md §4.B asks for a
// forward-compatible format that "preserves unknown fields on
// read-modify-write" — encoding/json's struct-plus-map merge gives that
// without pulling in a schema compiler, and Go's map-key sort order on
// marshal keeps two encodes of the same value byte-identical, which is all
// the determinism the store layer needs (Badger doesn't diff values, and
// nothing in this module compares encoded bytes).
package codec

import (
	"encoding/json"
	"fmt"

	"github.com/secemp9/jari/internal/core/model"
)

// EncodeTodo serializes a Todo, folding Extra back in alongside its known
// fields so a future field this binary doesn't know about survives being
// read, modified, and written back by this binary.
func EncodeTodo(t model.Todo) ([]byte, error) {
	known, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("codec: encode todo %s: %w", t.ID, err)
	}
	if len(t.Extra) == 0 {
		return known, nil
	}

	merged := make(map[string]any, len(t.Extra)+8)
	for k, v := range t.Extra {
		merged[k] = v
	}
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, fmt.Errorf("codec: merge extras for todo %s: %w", t.ID, err)
	}
	out, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("codec: encode todo %s: %w", t.ID, err)
	}
	return out, nil
}

// DecodeTodo parses raw into a Todo, capturing any JSON object keys that
// don't correspond to a Todo struct field into Extra.
func DecodeTodo(raw []byte) (model.Todo, error) {
	var t model.Todo
	if err := json.Unmarshal(raw, &t); err != nil {
		return model.Todo{}, fmt.Errorf("%w: %v", model.ErrStorageCorrupt, err)
	}

	var all map[string]any
	if err := json.Unmarshal(raw, &all); err != nil {
		return model.Todo{}, fmt.Errorf("%w: %v", model.ErrStorageCorrupt, err)
	}
	for _, known := range knownTodoFields {
		delete(all, known)
	}
	if len(all) > 0 {
		t.Extra = all
	}
	return t, nil
}

var knownTodoFields = []string{
	"id", "title", "description", "status", "priority", "type", "assignee",
	"labels", "niwa_refs", "parent_id", "blocked_by", "reason", "version",
	"created_at", "updated_at", "created_by", "updated_by",
}

// EncodeHistoryEntry and DecodeHistoryEntry round-trip immutable version
// snapshots. History entries carry no forward-compat requirement of their
// own (spec.md §4.B: history is append-only and never read-modify-written
// by a running binary), so no Extra handling is needed here.
func EncodeHistoryEntry(h model.HistoryEntry) ([]byte, error) {
	out, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("codec: encode history entry for %s: %w", h.Todo.ID, err)
	}
	return out, nil
}

func DecodeHistoryEntry(raw []byte) (model.HistoryEntry, error) {
	var h model.HistoryEntry
	if err := json.Unmarshal(raw, &h); err != nil {
		return model.HistoryEntry{}, fmt.Errorf("%w: %v", model.ErrStorageCorrupt, err)
	}
	return h, nil
}

func EncodeConflict(c model.Conflict) ([]byte, error) {
	out, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("codec: encode conflict: %w", err)
	}
	return out, nil
}

func DecodeConflict(raw []byte) (model.Conflict, error) {
	var c model.Conflict
	if err := json.Unmarshal(raw, &c); err != nil {
		return model.Conflict{}, fmt.Errorf("%w: %v", model.ErrStorageCorrupt, err)
	}
	return c, nil
}

func EncodeAgentRecord(a model.AgentRecord) ([]byte, error) {
	out, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("codec: encode agent record %s: %w", a.Name, err)
	}
	return out, nil
}

func DecodeAgentRecord(raw []byte) (model.AgentRecord, error) {
	var a model.AgentRecord
	if err := json.Unmarshal(raw, &a); err != nil {
		return model.AgentRecord{}, fmt.Errorf("%w: %v", model.ErrStorageCorrupt, err)
	}
	return a, nil
}

// EncodeCounter and DecodeCounter store a plain integer counter value
// (meta/counter/todo_id) — no JSON envelope needed for a single scalar.
func EncodeCounter(n int) []byte {
	return []byte(fmt.Sprintf("%d", n))
}

func DecodeCounter(raw []byte) (int, error) {
	var n int
	if _, err := fmt.Sscanf(string(raw), "%d", &n); err != nil {
		return 0, fmt.Errorf("%w: counter value %q: %v", model.ErrStorageCorrupt, raw, err)
	}
	return n, nil
}
