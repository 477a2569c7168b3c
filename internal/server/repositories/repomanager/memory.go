package repomanager

import (
	"context"

	"github.com/dmitrijs2005/polvault/internal/server/repositories/records"
	"github.com/dmitrijs2005/polvault/internal/server/repositories/revocations"
)

type InMemoryRepositoryManager struct {
	records     *records.MemoryRepository
	revocations *revocations.MemoryRepository
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{
		records:     records.NewMemoryRepository(),
		revocations: revocations.NewMemoryRepository(),
	}
}

func (m *InMemoryRepositoryManager) Backend() string { return "memory" }

func (m *InMemoryRepositoryManager) Records() records.Repository { return m.records }

func (m *InMemoryRepositoryManager) Revocations() revocations.Repository { return m.revocations }

func (m *InMemoryRepositoryManager) Purge(ctx context.Context) error {
	_ = m.records.Delete(ctx)
	_ = m.revocations.Delete(ctx)
	return nil
}

func (m *InMemoryRepositoryManager) Close() error { return nil }
