package repomanager

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/polvault/internal/filex"
	"github.com/dmitrijs2005/polvault/internal/server/repositories/records"
	"github.com/dmitrijs2005/polvault/internal/server/repositories/revocations"
)

// FileRepositoryManager keeps everything as JSON files in one owner-only
// directory.
type FileRepositoryManager struct {
	records     *records.FileRepository
	revocations *revocations.FileRepository
}

func NewFileRepositoryManager(dir string) (*FileRepositoryManager, error) {
	if err := filex.EnsureDir(dir); err != nil {
		return nil, err
	}
	return &FileRepositoryManager{
		records:     records.NewFileRepository(dir),
		revocations: revocations.NewFileRepository(dir),
	}, nil
}

func (m *FileRepositoryManager) Backend() string { return "file" }

func (m *FileRepositoryManager) Records() records.Repository { return m.records }

func (m *FileRepositoryManager) Revocations() revocations.Repository { return m.revocations }

func (m *FileRepositoryManager) Purge(ctx context.Context) error {
	return errors.Join(m.records.Delete(ctx), m.revocations.Delete(ctx))
}

func (m *FileRepositoryManager) Close() error { return nil }
