package model

// Field names the mutable attributes of a Todo. Kept as a closed set
// (design note in spec.md §9: "represent a todo's mutable state as a
// tagged union of fields with a closed schema") rather than dispatching on
// arbitrary strings, so the diff in the concurrency engine can be a
// straight-line comparison over Changes' fields instead of a map walk.
type Field string

const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldStatus      Field = "status"
	FieldPriority    Field = "priority"
	FieldType        Field = "type"
	FieldAssignee    Field = "assignee"
	FieldLabels      Field = "labels"
	FieldNiwaRefs    Field = "niwa_refs"
	FieldParentID    Field = "parent_id"
	FieldBlockedBy   Field = "blocked_by"
	FieldReason      Field = "reason"
)

// SetOp is an add/remove pair applied to a set-valued field. Both slices
// may be non-empty in the same call (e.g. swapping one label for another).
type SetOp struct {
	Add    []string
	Remove []string
}

// Empty reports whether the operation would change nothing.
func (s SetOp) Empty() bool { return len(s.Add) == 0 && len(s.Remove) == 0 }

// Changes is the closed set of field mutations a caller may propose in one
// Update call. Nil pointers and empty SetOps mean "leave this field
// alone" — the zero value of Changes is a no-op update.
type Changes struct {
	Title       *string
	Description *string
	Status      *Status
	Priority    *int
	Type        *string
	Assignee    *string
	ParentID    *string
	Reason      *string

	Labels    SetOp
	NiwaRefs  SetOp
	BlockedBy SetOp
}

// ResolveStrategy names how a conflict is resolved, per spec.md §4.D.
type ResolveStrategy string

const (
	AcceptYours  ResolveStrategy = "ACCEPT_YOURS"
	AcceptTheirs ResolveStrategy = "ACCEPT_THEIRS"
	ManualMerge  ResolveStrategy = "MANUAL_MERGE"
)

// Valid reports whether s names a recognized resolution strategy.
func (s ResolveStrategy) Valid() bool {
	switch s {
	case AcceptYours, AcceptTheirs, ManualMerge:
		return true
	}
	return false
}
