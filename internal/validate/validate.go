// Package validate provides shared field validators, grounded on the
// teacher's internal/core/validate criterio.Run wrapper style.
package validate

import (
	"fmt"
	"strings"

	"github.com/hay-kot/criterio"

	"github.com/secemp9/jari/internal/core/model"
)

// Title requires a non-empty title after trimming whitespace.
func Title(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}

// TitleField returns a criterio validator for the title field.
func TitleField(field, title string) error {
	return criterio.Run(field, title, Title)
}

// Priority requires an integer in [model.MinPriority, model.MaxPriority].
func Priority(p int) error {
	if p < model.MinPriority || p > model.MaxPriority {
		return fmt.Errorf("priority must be between %d and %d", model.MinPriority, model.MaxPriority)
	}
	return nil
}

// PriorityField returns a criterio validator for the priority field.
func PriorityField(field string, p int) error {
	return criterio.Run(field, p, Priority)
}

// StatusValue requires one of the five recognized lifecycle statuses.
func StatusValue(s model.Status) error {
	if !s.Valid() {
		return fmt.Errorf("unrecognized status %q", s)
	}
	return nil
}

// StatusField returns a criterio validator for the status field.
func StatusField(field string, s model.Status) error {
	return criterio.Run(field, s, StatusValue)
}

// Strategy requires one of the three resolution strategies.
func Strategy(s model.ResolveStrategy) error {
	if !s.Valid() {
		return fmt.Errorf("unrecognized resolution strategy %q", s)
	}
	return nil
}

// StrategyField returns a criterio validator for the resolve strategy field.
func StrategyField(field string, s model.ResolveStrategy) error {
	return criterio.Run(field, s, Strategy)
}

// TodoID requires a non-empty id.
func TodoID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("id is required")
	}
	return nil
}

// TodoIDField returns a criterio validator for a todo id argument.
func TodoIDField(field, id string) error {
	return criterio.Run(field, id, TodoID)
}
