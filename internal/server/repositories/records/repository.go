// Package records stores the single sealed vault record. Implementations
// never see plaintext: they move RecordEnvelope values in and out.
package records

import (
	"context"

	"github.com/dmitrijs2005/polvault/internal/server/models"
)

type Repository interface {
	// Exists reports whether a record is stored.
	Exists(ctx context.Context) (bool, error)

	// Load returns the stored envelope or common.ErrorNotFound.
	Load(ctx context.Context) (*models.RecordEnvelope, error)

	// Save replaces the stored envelope atomically.
	Save(ctx context.Context, env *models.RecordEnvelope) error

	// Delete removes the record. Deleting a missing record is not an error.
	Delete(ctx context.Context) error
}
