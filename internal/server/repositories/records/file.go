package records

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

const FileName = "user.json"

// FileRepository keeps the envelope in <dir>/user.json.
type FileRepository struct {
	path string
}

func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{path: filepath.Join(dir, FileName)}
}

func (r *FileRepository) Exists(ctx context.Context) (bool, error) {
	return filex.Exists(r.path)
}

func (r *FileRepository) Load(ctx context.Context) (*models.RecordEnvelope, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("read record: %w", err)
	}

	env := &models.RecordEnvelope{}
	if err := json.Unmarshal(data, env); err != nil {
		return nil, fmt.Errorf("%w: decode record: %v", common.ErrCorruptData, err)
	}
	return env, nil
}

func (r *FileRepository) Save(ctx context.Context, env *models.RecordEnvelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := filex.WriteFileAtomic(r.path, data); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

func (r *FileRepository) Delete(ctx context.Context) error {
	return filex.RemoveIfExists(r.path)
}
