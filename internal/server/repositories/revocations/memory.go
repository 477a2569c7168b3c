package revocations

import (
	"context"
	"slices"
	"sync"

	"github.com/dmitrijs2005/polvault/internal/common"
	"github.com/dmitrijs2005/polvault/internal/server/models"
)

type MemoryRepository struct {
	mu   sync.Mutex
	snap *models.SessionsSnapshot
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Load(ctx context.Context) (*models.SessionsSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snap == nil {
		return nil, common.ErrorNotFound
	}
	return &models.SessionsSnapshot{Sessions: slices.Clone(r.snap.Sessions), Timestamp: r.snap.Timestamp}, nil
}

func (r *MemoryRepository) Save(ctx context.Context, snap *models.SessionsSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap = &models.SessionsSnapshot{Sessions: slices.Clone(snap.Sessions), Timestamp: snap.Timestamp}
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap = nil
	return nil
}
