package backups

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/dmitrijs2005/polvault/internal/common"
	"github.com/dmitrijs2005/polvault/internal/filex"
	"github.com/dmitrijs2005/polvault/internal/server/models"
)

// FileSink writes backups as owner-only files in dir.
type FileSink struct {
	dir string
}

func NewFileSink(dir string) (*FileSink, error) {
	if err := filex.EnsureDir(dir); err != nil {
		return nil, err
	}
	return &FileSink{dir: dir}, nil
}

func (s *FileSink) Put(ctx context.Context, handle string, data []byte) error {
	if !ValidHandle(handle) {
		return fmt.Errorf("invalid backup handle %q", handle)
	}
	return filex.WriteFileAtomic(filepath.Join(s.dir, handle), data)
}

func (s *FileSink) Get(ctx context.Context, handle string) ([]byte, error) {
	if !ValidHandle(handle) {
		return nil, common.ErrBackupNotFound
	}
	data, err := os.ReadFile(filepath.Join(s.dir, handle))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.ErrBackupNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *FileSink) List(ctx context.Context) ([]models.BackupInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	out := make([]models.BackupInfo, 0)
	for _, e := range entries {
		if e.IsDir() || !ValidHandle(e.Name()) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		created, _ := HandleTime(e.Name())
		out = append(out, models.BackupInfo{Handle: e.Name(), Size: fi.Size(), CreatedAt: created})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
