package concurrency

import "github.com/secemp9/jari/internal/core/model"

func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, it := range items {
		s[it] = true
	}
	return s
}

func setDiffElements(a, b map[string]bool) []string {
	var out []string
	for k := range a {
		if !b[k] {
			out = append(out, k)
		}
	}
	return out
}

func union(sets ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range sets {
		for _, v := range s {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

func intersect(a, b []string) []string {
	bSet := toSet(b)
	var out []string
	for _, v := range a {
		if bSet[v] {
			out = append(out, v)
		}
	}
	return out
}

func subtract(items []string, remove ...[]string) []string {
	removeSet := toSet(union(remove...))
	var out []string
	for _, v := range items {
		if !removeSet[v] {
			out = append(out, v)
		}
	}
	return out
}

// setMergeOutcome is the result of merging one set-valued field.
type setMergeOutcome struct {
	field       model.Field
	final       []string // the element set to commit, whether or not a conflict occurred
	changed     bool     // true if final differs from theirsBase (something was merged)
	conflicted  bool
	yoursValue  any
	theirsValue any
}

// mergeSetField implements spec.md §4.D's set-valued auto-merge rule:
// combine additions and removals from both sides; an element conflicts
// only when one side adds it while the other removes it.
func mergeSetField(field model.Field, yoursBase, theirsCurrent []string, op model.SetOp) setMergeOutcome {
	yoursBaseSet := toSet(yoursBase)
	theirsSet := toSet(theirsCurrent)

	theirsAdded := setDiffElements(theirsSet, yoursBaseSet)
	theirsRemoved := setDiffElements(yoursBaseSet, theirsSet)

	yoursAdded := op.Add
	yoursRemoved := op.Remove

	conflictAdds := intersect(yoursAdded, theirsRemoved)
	conflictRemoves := intersect(theirsAdded, yoursRemoved)
	conflicted := union(conflictAdds, conflictRemoves)

	safeAdds := subtract(union(yoursAdded, theirsAdded), conflicted)
	safeRemoves := subtract(union(yoursRemoved, theirsRemoved), conflicted)

	final := subtract(union(theirsCurrent, safeAdds), safeRemoves)

	changed := !sameElements(final, theirsCurrent)

	out := setMergeOutcome{field: field, final: final, changed: changed}
	if len(conflicted) > 0 {
		out.conflicted = true
		out.yoursValue = map[string][]string{"add": yoursAdded, "remove": yoursRemoved}
		out.theirsValue = map[string][]string{"add": theirsAdded, "remove": theirsRemoved}
	}
	return out
}

func sameElements(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	bSet := toSet(b)
	for _, v := range a {
		if !bSet[v] {
			return false
		}
	}
	return true
}
