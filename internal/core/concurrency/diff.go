package concurrency

import "github.com/secemp9/jari/internal/core/model"

// scalarField describes one atomic (non-set) mutable field: how to read
// it off a Todo, whether Changes proposes a new value for it, and how to
// write an accepted value back.
type scalarField struct {
	name     model.Field
	get      func(t model.Todo) any
	proposed func(c model.Changes) (any, bool)
	apply    func(t *model.Todo, v any)
}

var scalarFields = []scalarField{
	{
		name: model.FieldTitle,
		get:  func(t model.Todo) any { return t.Title },
		proposed: func(c model.Changes) (any, bool) {
			if c.Title == nil {
				return nil, false
			}
			return *c.Title, true
		},
		apply: func(t *model.Todo, v any) { t.Title = v.(string) },
	},
	{
		name: model.FieldDescription,
		get:  func(t model.Todo) any { return t.Description },
		proposed: func(c model.Changes) (any, bool) {
			if c.Description == nil {
				return nil, false
			}
			return *c.Description, true
		},
		apply: func(t *model.Todo, v any) { t.Description = v.(string) },
	},
	{
		name: model.FieldStatus,
		get:  func(t model.Todo) any { return t.Status },
		proposed: func(c model.Changes) (any, bool) {
			if c.Status == nil {
				return nil, false
			}
			return *c.Status, true
		},
		apply: func(t *model.Todo, v any) { t.Status = v.(model.Status) },
	},
	{
		name: model.FieldPriority,
		get:  func(t model.Todo) any { return t.Priority },
		proposed: func(c model.Changes) (any, bool) {
			if c.Priority == nil {
				return nil, false
			}
			return *c.Priority, true
		},
		apply: func(t *model.Todo, v any) { t.Priority = v.(int) },
	},
	{
		name: model.FieldType,
		get:  func(t model.Todo) any { return t.Type },
		proposed: func(c model.Changes) (any, bool) {
			if c.Type == nil {
				return nil, false
			}
			return *c.Type, true
		},
		apply: func(t *model.Todo, v any) { t.Type = v.(string) },
	},
	{
		name: model.FieldAssignee,
		get:  func(t model.Todo) any { return t.Assignee },
		proposed: func(c model.Changes) (any, bool) {
			if c.Assignee == nil {
				return nil, false
			}
			return *c.Assignee, true
		},
		apply: func(t *model.Todo, v any) { t.Assignee = v.(string) },
	},
	{
		name: model.FieldParentID,
		get:  func(t model.Todo) any { return t.ParentID },
		proposed: func(c model.Changes) (any, bool) {
			if c.ParentID == nil {
				return nil, false
			}
			return *c.ParentID, true
		},
		apply: func(t *model.Todo, v any) { t.ParentID = v.(string) },
	},
	{
		name: model.FieldReason,
		get:  func(t model.Todo) any { return t.Reason },
		proposed: func(c model.Changes) (any, bool) {
			if c.Reason == nil {
				return nil, false
			}
			return *c.Reason, true
		},
		apply: func(t *model.Todo, v any) { t.Reason = v.(string) },
	},
}

// scalarDiff is the outcome of comparing one field across Y (the agent's
// base view), Y' (the agent's intended value), and T (the current
// committed record).
type scalarDiff struct {
	field         model.Field
	theirsChanged bool
	yoursChanged  bool
	yoursValue    any
	theirsValue   any
}

// diffScalars runs spec.md §4.D steps 3-4 over every atomic field.
func diffScalars(y, t model.Todo, changes model.Changes) []scalarDiff {
	diffs := make([]scalarDiff, 0, len(scalarFields))
	for _, f := range scalarFields {
		yVal := f.get(y)
		tVal := f.get(t)
		proposedVal, has := f.proposed(changes)

		ypVal := yVal
		if has {
			ypVal = proposedVal
		}

		diffs = append(diffs, scalarDiff{
			field:         f.name,
			theirsChanged: tVal != yVal,
			yoursChanged:  has && ypVal != yVal,
			yoursValue:    ypVal,
			theirsValue:   tVal,
		})
	}
	return diffs
}

func scalarFieldByName(name model.Field) scalarField {
	for _, f := range scalarFields {
		if f.name == name {
			return f
		}
	}
	panic("concurrency: unknown scalar field " + string(name))
}
