// Package backups stores timestamped snapshots of the vault record, either
// next to the live data or in an S3 compatible bucket.
package backups

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/dmitrijs2005/polvault/internal/server/models"
)

// Sink persists backup snapshots under opaque handles.
type Sink interface {
	Put(ctx context.Context, handle string, data []byte) error
	// Get returns common.ErrBackupNotFound for unknown handles.
	Get(ctx context.Context, handle string) ([]byte, error)
	List(ctx context.Context) ([]models.BackupInfo, error)
}

var handleRe = regexp.MustCompile(`^backup_(\d+)\.json$`)

// NewHandle names a backup after its creation time in unix milliseconds.
func NewHandle(now time.Time) string {
	return fmt.Sprintf("backup_%d.json", now.UnixMilli())
}

// ValidHandle rejects anything that is not a plain backup name, which keeps
// path separators and traversal out of the sinks.
func ValidHandle(handle string) bool {
	return handleRe.MatchString(handle)
}

// HandleTime extracts the creation time encoded in handle.
func HandleTime(handle string) (time.Time, bool) {
	m := handleRe.FindStringSubmatch(handle)
	if m == nil {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return models.UnixMilli(ms), true
}
