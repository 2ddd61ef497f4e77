package concurrency

import (
	"time"

	"github.com/secemp9/jari/internal/core/graph"
	"github.com/secemp9/jari/internal/core/model"
	"github.com/secemp9/jari/internal/core/store"
)

var setFields = []model.Field{model.FieldLabels, model.FieldNiwaRefs, model.FieldBlockedBy}

func setOpFor(changes model.Changes, field model.Field) model.SetOp {
	switch field {
	case model.FieldLabels:
		return changes.Labels
	case model.FieldNiwaRefs:
		return changes.NiwaRefs
	case model.FieldBlockedBy:
		return changes.BlockedBy
	}
	return model.SetOp{}
}

func setValueFor(t model.Todo, field model.Field) []string {
	switch field {
	case model.FieldLabels:
		return t.Labels
	case model.FieldNiwaRefs:
		return t.NiwaRefs
	case model.FieldBlockedBy:
		return t.BlockedBy
	}
	return nil
}

func setApply(t *model.Todo, field model.Field, final []string) {
	switch field {
	case model.FieldLabels:
		t.Labels = final
	case model.FieldNiwaRefs:
		t.NiwaRefs = final
	case model.FieldBlockedBy:
		t.BlockedBy = final
	}
}

// Update runs the field-level three-way merge described in spec.md §4.D
// steps 1-9: load the agent's base view from history, diff it against the
// intended change and the current record, auto-merge disjoint fields,
// and materialize a Conflict for every field both sides touched.
func Update(tx *store.Txn, agent, id string, changes model.Changes, now time.Time) (Result, error) {
	t, err := loadTodo(tx, id)
	if err != nil {
		return Result{}, err
	}

	pending, err := loadConflicts(tx, id)
	if err != nil {
		return Result{}, err
	}
	var ownFields []string
	for _, c := range pending {
		if c.Agent == agent {
			ownFields = append(ownFields, c.Field)
		}
	}
	if len(ownFields) > 0 {
		return Result{}, &model.ConflictPendingError{ID: id, Fields: ownFields}
	}

	base, hasPending, err := getPending(tx, agent, id)
	if err != nil {
		return Result{}, err
	}
	if !hasPending {
		base = t.Version
	}

	y := t
	if base != t.Version {
		y, err = loadHistoryAt(tx, id, base)
		if err != nil {
			// The agent's base snapshot is gone (e.g. compacted); fall back
			// to treating the current record as the base rather than
			// failing an otherwise-legitimate update.
			y = t
			base = t.Version
		}
	}

	scalarDiffs := diffScalars(y, t, changes)

	var merged []model.Field
	var conflictFields []struct {
		field  model.Field
		yours  any
		theirs any
	}

	newT := t
	for _, d := range scalarDiffs {
		switch {
		case d.yoursChanged && d.theirsChanged:
			conflictFields = append(conflictFields, struct {
				field  model.Field
				yours  any
				theirs any
			}{d.field, d.yoursValue, d.theirsValue})
		case d.yoursChanged:
			scalarFieldByName(d.field).apply(&newT, d.yoursValue)
			merged = append(merged, d.field)
		}
	}

	type setResult struct {
		field   model.Field
		outcome setMergeOutcome
	}
	var setResults []setResult
	for _, f := range setFields {
		op := setOpFor(changes, f)
		if op.Empty() {
			continue
		}
		outcome := mergeSetField(f, setValueFor(y, f), setValueFor(t, f), op)
		setResults = append(setResults, setResult{f, outcome})
		if outcome.conflicted {
			conflictFields = append(conflictFields, struct {
				field  model.Field
				yours  any
				theirs any
			}{f, outcome.yoursValue, outcome.theirsValue})
		}
		if outcome.changed && f != model.FieldBlockedBy {
			setApply(&newT, f, outcome.final)
			merged = append(merged, f)
		}
	}

	// blocked_by edits route through graph so the reverse index and cycle
	// check stay consistent; they're applied here, before the record itself
	// is saved below.
	var blockedByEdgeApplied bool
	for _, sr := range setResults {
		if sr.field != model.FieldBlockedBy || !sr.outcome.changed {
			continue
		}
		before := toSet(setValueFor(t, model.FieldBlockedBy))
		after := toSet(sr.outcome.final)
		for parent := range after {
			if !before[parent] {
				if err := graph.AddEdge(tx, id, parent); err != nil {
					return Result{}, err
				}
				blockedByEdgeApplied = true
			}
		}
		for parent := range before {
			if !after[parent] {
				if err := graph.RemoveEdge(tx, id, parent); err != nil {
					return Result{}, err
				}
				blockedByEdgeApplied = true
			}
		}
		if blockedByEdgeApplied {
			merged = append(merged, model.FieldBlockedBy)
		}
	}

	mergedAny := len(merged) > 0

	if !mergedAny && len(conflictFields) == 0 {
		return Result{Todo: t}, nil
	}

	seq, err := nextConflictSeq(tx, id)
	if err != nil {
		return Result{}, err
	}
	var conflicts []model.Conflict
	for _, cf := range conflictFields {
		if err := appendConflict(tx, id, seq, agent, string(cf.field), base, cf.yours, cf.theirs, now); err != nil {
			return Result{}, err
		}
		conflicts = append(conflicts, model.Conflict{
			Seq: seq, Agent: agent, Field: string(cf.field), BaseVersion: base,
			YoursValue: cf.yours, TheirsValue: cf.theirs, Timestamp: now,
		})
		seq++
	}

	if !mergedAny {
		return Result{Todo: t, Conflicts: conflicts}, &model.ConflictPendingError{ID: id, Fields: fieldNames(conflictFields)}
	}

	if blockedByEdgeApplied {
		// graph already saved the record with its new blocked_by; carry
		// that list over so the save below keeps both it and the fields
		// merged above.
		saved, err := loadTodo(tx, id)
		if err != nil {
			return Result{}, err
		}
		newT.BlockedBy = saved.BlockedBy
	}

	newT.Version = t.Version + 1
	newT.UpdatedAt = now
	newT.UpdatedBy = agent

	if err := saveTodo(tx, newT); err != nil {
		return Result{}, err
	}
	if err := appendHistory(tx, newT, agent, "update", now); err != nil {
		return Result{}, err
	}
	if err := touchAgent(tx, agent, now); err != nil {
		return Result{}, err
	}
	if err := clearPending(tx, agent, id); err != nil {
		return Result{}, err
	}

	return Result{Todo: newT, Merged: merged, Conflicts: conflicts}, nil
}

func fieldNames(cf []struct {
	field  model.Field
	yours  any
	theirs any
}) []string {
	out := make([]string, len(cf))
	for i, c := range cf {
		out[i] = string(c.field)
	}
	return out
}
