// Package storage defines the Storage interface, the contract any
// database backend must satisfy to hold student records.
//
// WHY AN INTERFACE?
// ─────────────────
// The service layer depends only on this interface, so tests can pass a
// fake and production can pick the backend at startup.
package storage

import (
	"context"
	"errors"

	"github.com/aanand-mishra/student-records/internal/types"
)

// ErrNotFound is returned by Save when asked to update a student whose
// row no longer exists.
var ErrNotFound = errors.New("student not found")

// Storage is the student repository contract.
type Storage interface {
	// Save inserts the student when its ID is zero and writes the new ID
	// back into it. Otherwise it updates the row with that ID, and returns
	// ErrNotFound if there is no such row. Save never re-creates a row
	// that was deleted.
	Save(ctx context.Context, student *types.Student) error

	// FindByID returns the student and true, or a zero value and false
	// when no row has that id. Absence is not an error.
	FindByID(ctx context.Context, id uint) (types.Student, bool, error)

	// FindAll returns every stored student. The slice is never nil.
	FindAll(ctx context.Context) ([]types.Student, error)

	// DeleteByID removes the row with that id. Deleting an id that does
	// not exist is a no-op.
	DeleteByID(ctx context.Context, id uint) error

	// Transaction runs fn against a Storage bound to a single database
	// transaction. The transaction commits when fn returns nil and rolls
	// back otherwise.
	Transaction(ctx context.Context, fn func(tx Storage) error) error
}
