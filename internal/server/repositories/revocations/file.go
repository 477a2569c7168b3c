package revocations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/polvault/internal/common"
	"github.com/dmitrijs2005/polvault/internal/filex"
	"github.com/dmitrijs2005/polvault/internal/server/models"
)

const FileName = "sessions.json"

type FileRepository struct {
	path string
}

func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{path: filepath.Join(dir, FileName)}
}

func (r *FileRepository) Load(ctx context.Context) (*models.SessionsSnapshot, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("read sessions: %w", err)
	}

	snap := &models.SessionsSnapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	return snap, nil
}

func (r *FileRepository) Save(ctx context.Context, snap *models.SessionsSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode sessions: %w", err)
	}
	if err := filex.WriteFileAtomic(r.path, data); err != nil {
		return fmt.Errorf("write sessions: %w", err)
	}
	return nil
}

func (r *FileRepository) Delete(ctx context.Context) error {
	return filex.RemoveIfExists(r.path)
}
