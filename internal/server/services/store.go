package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/polvault/internal/common"
	"github.com/dmitrijs2005/polvault/internal/cryptox"
	"github.com/dmitrijs2005/polvault/internal/logging"
	"github.com/dmitrijs2005/polvault/internal/server/backups"
	"github.com/dmitrijs2005/polvault/internal/server/models"
	"github.com/dmitrijs2005/polvault/internal/server/repositories/repomanager"
)

// SecretStore owns the sealed user record, the persisted revocation set and
// the backups. It is the only component that touches storage.
//
// Errors: common.ErrNotConfigured when no record exists,
// common.ErrInvalidCredentials when a record cannot be opened or parsed,
// anything wrapping common.ErrStorageFailure for I/O problems.
type SecretStore struct {
	repos     repomanager.RepositoryManager
	sink      backups.Sink
	retention time.Duration
	now       func() time.Time
	logger    logging.Logger

	// serializes revocation-set writes from the flusher and lifecycle events
	persistMu sync.Mutex
}

func NewSecretStore(repos repomanager.RepositoryManager, sink backups.Sink, retention time.Duration, logger logging.Logger) *SecretStore {
	return &SecretStore{
		repos:     repos,
		sink:      sink,
		retention: retention,
		now:       time.Now,
		logger:    logger.With("module", "store"),
	}
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", common.ErrStorageFailure, op, err)
}

func (s *SecretStore) Exists(ctx context.Context) (bool, error) {
	ok, err := s.repos.Records().Exists(ctx)
	if err != nil {
		return false, storageErr("exists", err)
	}
	return ok, nil
}

// Write seals rec under password and replaces the stored record.
func (s *SecretStore) Write(ctx context.Context, rec *models.UserRecord, password string) error {
	plaintext, err := json.Marshal(rec)
	if err != nil {
		return storageErr("encode record", err)
	}
	defer common.WipeByteArray(plaintext)

	sealed, err := cryptox.SealWithPassword(plaintext, []byte(password))
	if err != nil {
		return storageErr("seal record", err)
	}

	env := &models.RecordEnvelope{
		Data:      base64.StdEncoding.EncodeToString(sealed),
		Timestamp: s.now().UnixMilli(),
		Version:   models.EnvelopeVersion,
	}
	if err := s.repos.Records().Save(ctx, env); err != nil {
		return storageErr("save record", err)
	}
	return nil
}

// Read opens the stored record with password.
func (s *SecretStore) Read(ctx context.Context, password string) (*models.UserRecord, error) {
	env, err := s.repos.Records().Load(ctx)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound):
			return nil, common.ErrNotConfigured
		case errors.Is(err, common.ErrCorruptData):
			return nil, common.ErrInvalidCredentials
		default:
			return nil, storageErr("load record", err)
		}
	}

	return openEnvelope(env, password)
}

func openEnvelope(env *models.RecordEnvelope, password string) (*models.UserRecord, error) {
	sealed, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return nil, common.ErrInvalidCredentials
	}

	plaintext, err := cryptox.OpenWithPassword(sealed, []byte(password))
	if err != nil {
		return nil, common.ErrInvalidCredentials
	}
	defer common.WipeByteArray(plaintext)

	rec := &models.UserRecord{}
	if err := json.Unmarshal(plaintext, rec); err != nil {
		return nil, common.ErrInvalidCredentials
	}
	return rec, nil
}

// Clear removes the record and the persisted revocation set. Idempotent.
func (s *SecretStore) Clear(ctx context.Context) error {
	if err := s.repos.Purge(ctx); err != nil {
		return storageErr("purge", err)
	}
	return nil
}

// PersistRevocationSet writes the set returned by current. current is called
// with the write lock held, so a slow writer can never overwrite a newer
// state with an older copy.
func (s *SecretStore) PersistRevocationSet(ctx context.Context, current func() []string) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	tokens := current()
	if tokens == nil {
		tokens = []string{}
	}
	snap := &models.SessionsSnapshot{Sessions: tokens, Timestamp: s.now().UnixMilli()}
	if err := s.repos.Revocations().Save(ctx, snap); err != nil {
		return storageErr("save sessions", err)
	}
	return nil
}

// LoadRevocationSet never fails: a missing, unreadable or stale snapshot
// yields an empty set, which only forces users to log in again.
func (s *SecretStore) LoadRevocationSet(ctx context.Context) []string {
	snap, err := s.repos.Revocations().Load(ctx)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "discarding unreadable session snapshot", "error", err)
		}
		return []string{}
	}

	age := s.now().Sub(models.UnixMilli(snap.Timestamp))
	if age > s.retention {
		s.logger.Info(ctx, "discarding stale session snapshot", "age", age.String())
		return []string{}
	}

	if snap.Sessions == nil {
		return []string{}
	}
	return snap.Sessions
}

// Backup re-opens the record with password and stores a pretty printed
// snapshot. The returned handle is the only way to refer to it.
func (s *SecretStore) Backup(ctx context.Context, password string) (string, error) {
	rec, err := s.Read(ctx, password)
	if err != nil {
		return "", err
	}

	now := s.now()
	data, err := json.MarshalIndent(models.BackupSnapshot{
		User:      *rec,
		Timestamp: now.UnixMilli(),
		Version:   models.EnvelopeVersion,
	}, "", "  ")
	if err != nil {
		return "", storageErr("encode backup", err)
	}

	handle := backups.NewHandle(now)
	if err := s.sink.Put(ctx, handle, data); err != nil {
		return "", storageErr("write backup", err)
	}
	return handle, nil
}

// LoadBackup reads the record out of a backup snapshot.
func (s *SecretStore) LoadBackup(ctx context.Context, handle string) (*models.UserRecord, error) {
	data, err := s.sink.Get(ctx, handle)
	if err != nil {
		if errors.Is(err, common.ErrBackupNotFound) {
			return nil, err
		}
		return nil, storageErr("read backup", err)
	}

	snap := &models.BackupSnapshot{}
	if err := json.Unmarshal(data, snap); err != nil || snap.User.ID == "" {
		return nil, common.ErrInvalidCredentials
	}
	return &snap.User, nil
}

func (s *SecretStore) Stats(ctx context.Context) (*models.StorageStats, error) {
	stats := &models.StorageStats{Backend: s.repos.Backend(), Backups: []models.BackupInfo{}}

	env, err := s.repos.Records().Load(ctx)
	switch {
	case err == nil:
		stats.Configured = true
		ts := models.UnixMilli(env.Timestamp)
		stats.RecordUpdatedAt = &ts
	case errors.Is(err, common.ErrorNotFound):
	case errors.Is(err, common.ErrCorruptData):
		stats.Configured = true
	default:
		return nil, storageErr("load record", err)
	}

	list, err := s.sink.List(ctx)
	if err != nil {
		return nil, storageErr("list backups", err)
	}
	stats.Backups = list

	return stats, nil
}
