package users

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/identkit/userhub/pkg/interfaces"
)

// Constraint describes one uniqueness check: is Value already bound to a
// record in Table.Field other than the one identified by ExcludeID?
// ExcludeID is zero for creation.
type Constraint struct {
	Table     string
	Field     string
	Value     interface{}
	ExcludeID uint
}

// UniqueValidator is the fast-path duplicate check consulted during input
// validation. It performs an independent read per check and never
// serializes concurrent requests against each other; the store's unique
// index remains the authoritative guarantee at commit time.
type UniqueValidator struct {
	db  *gorm.DB
	log interfaces.Logger
}

// NewUniqueValidator creates a validator reading from the given store.
func NewUniqueValidator(repo *Repository, log interfaces.Logger) *UniqueValidator {
	return &UniqueValidator{db: repo.DB(), log: log}
}

// Check returns true when the constraint holds. A store error during the
// read passes the check (fail-open): transient backing-store failures must
// not block user input, and the unique index still rejects real duplicates
// on write. The failure is logged so outages stay visible.
func (v *UniqueValidator) Check(ctx context.Context, c Constraint) bool {
	var row struct{ ID uint }
	err := v.db.WithContext(ctx).
		Table(c.Table).
		Select("id").
		Where(fmt.Sprintf("%s = ?", c.Field), c.Value).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return true
		}
		v.log.Warn("uniqueness check failed open", map[string]interface{}{
			"table": c.Table,
			"field": c.Field,
			"error": err.Error(),
		})
		return true
	}

	return c.ExcludeID != 0 && row.ID == c.ExcludeID
}

// CheckAll runs every constraint concurrently and collects a field error
// for each failed check, completing before it returns so callers can gate
// the surrounding write on the verdict.
func (v *UniqueValidator) CheckAll(ctx context.Context, constraints []Constraint) []FieldError {
	results := make([]bool, len(constraints))

	var wg sync.WaitGroup
	for i, c := range constraints {
		wg.Add(1)
		go func(i int, c Constraint) {
			defer wg.Done()
			results[i] = v.Check(ctx, c)
		}(i, c)
	}
	wg.Wait()

	var errs []FieldError
	for i, ok := range results {
		if !ok {
			errs = append(errs, FieldError{
				Field:   constraints[i].Field,
				Message: fmt.Sprintf("%s already exists", constraints[i].Field),
			})
		}
	}
	return errs
}
