// Package repomanager wires the storage backends: each manager vends the
// record and revocation repositories for one backend and knows how to wipe
// both together.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/polvault/internal/server/repositories/records"
	"github.com/dmitrijs2005/polvault/internal/server/repositories/revocations"
)

type RepositoryManager interface {
	// Backend names the storage kind ("file", "postgres", "memory").
	Backend() string

	Records() records.Repository
	Revocations() revocations.Repository

	// Purge removes the record and the revocation snapshot together.
	Purge(ctx context.Context) error

	Close() error
}
