// Package shared holds the mapping between service models and the wire
// messages, used by both the gRPC and HTTP transports.
package shared

import (
	"github.com/dmitrijs2005/polvault/internal/api"
	"github.com/dmitrijs2005/polvault/internal/server/models"
)

func ToAPIPolicy(p models.SecurityPolicy) api.SecurityPolicy {
	return api.SecurityPolicy{
		AutoLock:        p.AutoLock,
		RememberSession: p.RememberSession,
		IdleTimeoutMs:   p.IdleTimeoutMs,
	}
}

// FromAPIPolicy returns nil for a nil policy so the service applies defaults.
func FromAPIPolicy(p *api.SecurityPolicy) *models.SecurityPolicy {
	if p == nil {
		return nil
	}
	return &models.SecurityPolicy{
		AutoLock:        p.AutoLock,
		RememberSession: p.RememberSession,
		IdleTimeoutMs:   p.IdleTimeoutMs,
	}
}

func ToAPIUser(u models.UserSummary) api.User {
	return api.User{
		ID:               u.ID,
		PublicIdentifier: u.PublicIdentifier,
		HasSecret:        u.HasSecret,
		SecurityPolicy:   ToAPIPolicy(u.SecurityPolicy),
		CreatedAt:        u.CreatedAt,
		LastLoginAt:      u.LastLoginAt,
	}
}

func ToAPIStats(s *models.StorageStats) *api.StatsResponse {
	out := &api.StatsResponse{
		Configured:      s.Configured,
		Backend:         s.Backend,
		RecordUpdatedAt: s.RecordUpdatedAt,
		ActiveSessions:  s.ActiveSessions,
		Backups:         make([]api.Backup, 0, len(s.Backups)),
	}
	for _, b := range s.Backups {
		out.Backups = append(out.Backups, api.Backup{Handle: b.Handle, Size: b.Size, CreatedAt: b.CreatedAt})
	}
	return out
}
