package concurrency

import (
	"fmt"
	"strconv"
	"time"

	"github.com/secemp9/jari/internal/core/model"
	"github.com/secemp9/jari/internal/core/store"
)

// Resolve implements spec.md §4.D's resolution step for whichever
// conflicts are currently pending on id.
func Resolve(tx *store.Txn, agent, id string, strategy model.ResolveStrategy, overrides map[string]string, now time.Time) (model.Todo, error) {
	conflicts, err := loadConflicts(tx, id)
	if err != nil {
		return model.Todo{}, err
	}
	if len(conflicts) == 0 {
		return model.Todo{}, model.ErrNoConflicts
	}
	t, err := loadTodo(tx, id)
	if err != nil {
		return model.Todo{}, err
	}

	switch strategy {
	case model.AcceptYours:
		for _, c := range conflicts {
			val := coerceConflictValue(model.Field(c.Field), c.YoursValue)
			if err := applyResolvedValue(&t, c.Field, val); err != nil {
				return model.Todo{}, err
			}
		}
	case model.AcceptTheirs:
		// t already holds the committed ("theirs") value for every
		// conflicting field; nothing to apply.
	case model.ManualMerge:
		if len(overrides) == 0 {
			return model.Todo{}, &model.InvalidOverrideError{Field: "", Reason: "MANUAL_MERGE requires at least one field=value override"}
		}
		conflictFields := make(map[string]bool, len(conflicts))
		for _, c := range conflicts {
			conflictFields[c.Field] = true
		}
		for field, raw := range overrides {
			if !conflictFields[field] {
				return model.Todo{}, &model.InvalidOverrideError{Field: field, Reason: "no pending conflict on this field"}
			}
			val, err := parseOverrideValue(field, raw)
			if err != nil {
				return model.Todo{}, err
			}
			if err := applyResolvedValue(&t, field, val); err != nil {
				return model.Todo{}, err
			}
		}
	default:
		return model.Todo{}, &model.InvalidInputError{Field: "strategy", Reason: fmt.Sprintf("unknown resolution strategy %q", strategy)}
	}

	if err := clearConflicts(tx, id, conflicts); err != nil {
		return model.Todo{}, err
	}

	t.Version++
	t.UpdatedAt = now
	t.UpdatedBy = agent

	if err := saveTodo(tx, t); err != nil {
		return model.Todo{}, err
	}
	if err := appendHistory(tx, t, agent, "conflict resolved", now); err != nil {
		return model.Todo{}, err
	}
	if err := touchAgent(tx, agent, now); err != nil {
		return model.Todo{}, err
	}
	if err := clearPending(tx, agent, id); err != nil {
		return model.Todo{}, err
	}
	return t, nil
}

// applyResolvedValue writes val onto t's named field. Set-valued fields
// (labels, niwa_refs, blocked_by) are not resolvable this way: their
// conflicts carry an {add, remove} map, not a single settled value, so
// resolving them means re-issuing label/dep add|remove instead.
func applyResolvedValue(t *model.Todo, field string, val any) error {
	switch model.Field(field) {
	case model.FieldLabels, model.FieldNiwaRefs, model.FieldBlockedBy:
		return &model.InvalidOverrideError{Field: field, Reason: "set-valued fields are resolved with label/dep add|remove, not resolve"}
	}
	sf := scalarFieldByName(model.Field(field))
	sf.apply(t, val)
	return nil
}

// coerceConflictValue undoes the type erasure a Conflict record suffers
// on its round trip through JSON (int becomes float64, model.Status
// becomes a plain string) so applyResolvedValue's type assertions hold.
func coerceConflictValue(field model.Field, val any) any {
	switch field {
	case model.FieldPriority:
		if f, ok := val.(float64); ok {
			return int(f)
		}
	case model.FieldStatus:
		if s, ok := val.(string); ok {
			return model.Status(s)
		}
	}
	return val
}

func parseOverrideValue(field, raw string) (any, error) {
	switch model.Field(field) {
	case model.FieldTitle, model.FieldDescription, model.FieldType, model.FieldAssignee, model.FieldParentID, model.FieldReason:
		return raw, nil
	case model.FieldPriority:
		n, err := strconv.Atoi(raw)
		if err != nil || n < model.MinPriority || n > model.MaxPriority {
			return nil, &model.InvalidOverrideError{Field: field, Reason: fmt.Sprintf("priority must be an integer in [%d,%d]", model.MinPriority, model.MaxPriority)}
		}
		return n, nil
	case model.FieldStatus:
		s := model.Status(raw)
		if !s.Valid() {
			return nil, &model.InvalidOverrideError{Field: field, Reason: fmt.Sprintf("unrecognized status %q", raw)}
		}
		return s, nil
	case model.FieldLabels, model.FieldNiwaRefs, model.FieldBlockedBy:
		return nil, &model.InvalidOverrideError{Field: field, Reason: "set-valued fields are resolved with label/dep add|remove, not resolve"}
	}
	return nil, &model.InvalidOverrideError{Field: field, Reason: "unknown field"}
}
