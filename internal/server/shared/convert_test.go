package shared

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/polvault/internal/api"
	"github.com/dmitrijs2005/polvault/internal/server/models"
	"github.com/stretchr/testify/assert"
)

func TestPolicyMapping(t *testing.T) {
	assert.Nil(t, FromAPIPolicy(nil))

	p := FromAPIPolicy(&api.SecurityPolicy{AutoLock: true, IdleTimeoutMs: 60000})
	assert.Equal(t, &models.SecurityPolicy{AutoLock: true, IdleTimeoutMs: 60000}, p)
	assert.Equal(t, api.SecurityPolicy{AutoLock: true, IdleTimeoutMs: 60000}, ToAPIPolicy(*p))
}

func TestToAPIUser(t *testing.T) {
	created := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	u := ToAPIUser(models.UserSummary{
		ID:               "u-1",
		PublicIdentifier: "0xabc",
		HasSecret:        true,
		SecurityPolicy:   models.DefaultSecurityPolicy(),
		CreatedAt:        created,
	})

	assert.Equal(t, "u-1", u.ID)
	assert.True(t, u.HasSecret)
	assert.Equal(t, int64(900000), u.SecurityPolicy.IdleTimeoutMs)
	assert.Equal(t, created, u.CreatedAt)
	assert.Nil(t, u.LastLoginAt)
}

func TestToAPIStats(t *testing.T) {
	ts := time.UnixMilli(1700000000000).UTC()
	out := ToAPIStats(&models.StorageStats{
		Configured:     true,
		Backend:        "file",
		ActiveSessions: 2,
		Backups:        []models.BackupInfo{{Handle: "backup_1700000000000.json", Size: 10, CreatedAt: ts}},
	})

	assert.True(t, out.Configured)
	assert.Equal(t, 2, out.ActiveSessions)
	assert.Equal(t, []api.Backup{{Handle: "backup_1700000000000.json", Size: 10, CreatedAt: ts}}, out.Backups)

	empty := ToAPIStats(&models.StorageStats{})
	assert.NotNil(t, empty.Backups)
}
