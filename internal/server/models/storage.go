package models

import "time"

// EnvelopeVersion tags every persisted record envelope and backup.
const EnvelopeVersion = "2.0.0"

// RecordEnvelope is the persisted form of the sealed user record. Data is
// the base64 encoded sealed blob; Timestamp is unix milliseconds.
type RecordEnvelope struct {
	Data      string `json:"data"`
	Timestamp int64  `json:"timestamp"`
	Version   string `json:"version"`
}

// SessionsSnapshot is the persisted revocation set.
type SessionsSnapshot struct {
	Sessions  []string `json:"sessions"`
	Timestamp int64    `json:"timestamp"`
}

// BackupSnapshot is a human-inspectable copy of the record. The secret
// payload inside stays sealed under the password current at backup time.
type BackupSnapshot struct {
	User      UserRecord `json:"user"`
	Timestamp int64      `json:"timestamp"`
	Version   string     `json:"version"`
}

// BackupInfo describes one stored backup. Handle is the only reference a
// caller ever gets; it is never a filesystem path.
type BackupInfo struct {
	Handle    string    `json:"handle"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// StorageStats summarises what the vault currently keeps.
type StorageStats struct {
	Configured      bool         `json:"configured"`
	Backend         string       `json:"backend"`
	RecordUpdatedAt *time.Time   `json:"recordUpdatedAt,omitempty"`
	ActiveSessions  int          `json:"activeSessions"`
	Backups         []BackupInfo `json:"backups"`
}

// UnixMilli converts a persisted timestamp back to time.Time.
func UnixMilli(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
