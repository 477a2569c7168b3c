// Package revocations persists snapshots of the refresh-token set.
package revocations

import (
	"context"

	"github.com/dmitrijs2005/polvault/internal/server/models"
)

type Repository interface {
	// Load returns the stored snapshot or common.ErrorNotFound.
	Load(ctx context.Context) (*models.SessionsSnapshot, error)

	// Save replaces the stored snapshot atomically.
	Save(ctx context.Context, snap *models.SessionsSnapshot) error

	// Delete removes the snapshot. Missing is not an error.
	Delete(ctx context.Context) error
}
