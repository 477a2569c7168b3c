package records

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/polvault/internal/common"
	"github.com/dmitrijs2005/polvault/internal/server/models"
)

// MemoryRepository is a process-local Repository used by tests.
type MemoryRepository struct {
	mu  sync.Mutex
	env *models.RecordEnvelope
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Exists(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.env != nil, nil
}

func (r *MemoryRepository) Load(ctx context.Context) (*models.RecordEnvelope, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.env == nil {
		return nil, common.ErrorNotFound
	}
	cp := *r.env
	return &cp, nil
}

func (r *MemoryRepository) Save(ctx context.Context, env *models.RecordEnvelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *env
	r.env = &cp
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.env = nil
	return nil
}
