package todosvc

import (
	"errors"

	"github.com/secemp9/jari/internal/core/concurrency"
	"github.com/secemp9/jari/internal/core/model"
	"github.com/secemp9/jari/internal/core/store"
)

// Update runs the field-level optimistic merge for id. ConflictPending is
// a legitimate committed outcome (spec.md §4.D step 9: the conflict
// records themselves must persist), so it is reported after the
// transaction commits rather than treated as a rollback cause.
func (s *Service) Update(agent, id string, changes model.Changes) (concurrency.Result, error) {
	var result concurrency.Result
	var conflictErr error

	txErr := s.store.Update(func(tx *store.Txn) error {
		var err error
		result, err = concurrency.Update(tx, agent, id, changes, s.now())
		if err == nil {
			return nil
		}
		var pending *model.ConflictPendingError
		if errors.As(err, &pending) {
			conflictErr = err
			return nil
		}
		return err
	})
	if txErr != nil {
		return result, txErr
	}
	return result, conflictErr
}

// Resolve settles id's pending conflicts per strategy.
func (s *Service) Resolve(agent, id string, strategy model.ResolveStrategy, overrides map[string]string) (model.Todo, error) {
	var result model.Todo
	err := s.store.Update(func(tx *store.Txn) error {
		var err error
		result, err = concurrency.Resolve(tx, agent, id, strategy, overrides, s.now())
		return err
	})
	return result, err
}
