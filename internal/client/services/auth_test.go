package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/polvault/internal/api"
	"github.com/dmitrijs2005/polvault/internal/client/client"
	"github.com/dmitrijs2005/polvault/internal/client/guard"
	"github.com/dmitrijs2005/polvault/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/polvault/internal/common"
	"github.com/dmitrijs2005/polvault/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "password123"

// ---- fake client ----

type fakeClient struct {
	LoginResp  *api.LoginResponse
	LoginErr   error
	RefreshRet string
	RefreshErr error
	LogoutErr  error
	ChangeErr  error
	ResetErr   error
	BackupRet  string
	RestoreErr error
	Stats      *api.StatsResponse

	LastRefreshToken string
	LastLogoutToken  string
	Calls            []string
	Closed           bool
}

func (f *fakeClient) Close() error { f.Closed = true; return nil }

func (f *fakeClient) Ping(ctx context.Context) error { return nil }

func (f *fakeClient) Status(ctx context.Context) (*api.StatusResponse, error) {
	return &api.StatusResponse{Configured: true}, nil
}

func (f *fakeClient) Setup(ctx context.Context, password, secretPayload string, policy *api.SecurityPolicy) (*api.User, error) {
	f.Calls = append(f.Calls, "setup")
	return &api.User{ID: "u1"}, nil
}

func (f *fakeClient) Login(ctx context.Context, password string) (*api.LoginResponse, error) {
	f.Calls = append(f.Calls, "login")
	return f.LoginResp, f.LoginErr
}

func (f *fakeClient) Refresh(ctx context.Context, refreshToken string) (string, error) {
	f.LastRefreshToken = refreshToken
	return f.RefreshRet, f.RefreshErr
}

func (f *fakeClient) Logout(ctx context.Context, refreshToken string) error {
	f.LastLogoutToken = refreshToken
	return f.LogoutErr
}

func (f *fakeClient) ChangePassword(ctx context.Context, current, next string) error {
	f.Calls = append(f.Calls, "change-password")
	return f.ChangeErr
}

func (f *fakeClient) Reset(ctx context.Context, confirmation string) error {
	f.Calls = append(f.Calls, "reset")
	return f.ResetErr
}

func (f *fakeClient) CreateBackup(ctx context.Context, password string) (string, error) {
	f.Calls = append(f.Calls, "backup")
	return f.BackupRet, nil
}

func (f *fakeClient) RestoreBackup(ctx context.Context, handle, password string) (*api.User, error) {
	f.Calls = append(f.Calls, "restore")
	if f.RestoreErr != nil {
		return nil, f.RestoreErr
	}
	return &api.User{ID: "u1"}, nil
}

func (f *fakeClient) StorageStats(ctx context.Context) (*api.StatsResponse, error) {
	f.Calls = append(f.Calls, "stats")
	return f.Stats, nil
}

// ---- helpers ----

type fixture struct {
	svc   AuthService
	fc    *fakeClient
	guard *guard.Guard
	meta  metadata.Repository
}

func newFixture(t *testing.T, policy api.SecurityPolicy) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := client.InitDatabase(ctx, filepath.Join(t.TempDir(), "vault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	meta := metadata.NewSQLiteRepository(db)
	g := guard.New(meta)
	fc := &fakeClient{
		LoginResp: &api.LoginResponse{
			AccessToken:  "a1",
			RefreshToken: "r1",
			User:         api.User{ID: "u1", SecurityPolicy: policy},
		},
		RefreshRet: "a2",
		BackupRet:  "backup_1.json",
		Stats:      &api.StatsResponse{Backend: "file"},
	}
	return &fixture{
		svc:   NewAuthService(fc, g, meta, logging.Discard()),
		fc:    fc,
		guard: g,
		meta:  meta,
	}
}

var rememberPolicy = api.SecurityPolicy{AutoLock: true, RememberSession: true, IdleTimeoutMs: 900000}

// ---- tests ----

func TestLogin_StartsSessionAndSavesGate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, rememberPolicy)

	u, err := f.svc.Login(ctx, testPassword)
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	assert.Equal(t, guard.StateUnlocked, f.guard.State())
	assert.Equal(t, "a1", f.guard.AccessToken())
	assert.Equal(t, rememberPolicy, f.guard.Policy())

	ok, err := f.guard.VerifyGate(ctx, []byte(testPassword))
	require.NoError(t, err)
	assert.True(t, ok)

	token, found, err := f.guard.RestoreRemembered(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "r1", token)
}

func TestLogin_ErrorWrapped(t *testing.T) {
	f := newFixture(t, rememberPolicy)
	f.fc.LoginErr = common.ErrInvalidCredentials

	_, err := f.svc.Login(context.Background(), "wrong-password")
	require.ErrorIs(t, err, common.ErrInvalidCredentials)
	assert.Contains(t, err.Error(), "login error:")
	assert.Equal(t, guard.StateLoggedOut, f.guard.State())
}

func TestSetup_RejectsWeakPasswordLocally(t *testing.T) {
	f := newFixture(t, rememberPolicy)

	_, err := f.svc.Setup(context.Background(), "short", "", nil)
	require.ErrorIs(t, err, common.ErrWeakPassword)
	assert.Empty(t, f.fc.Calls)

	_, err = f.svc.Setup(context.Background(), testPassword, "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"setup"}, f.fc.Calls)
}

func TestUnlock(t *testing.T) {
	ctx := context.Background()

	t.Run("without prior login", func(t *testing.T) {
		f := newFixture(t, rememberPolicy)
		assert.ErrorIs(t, f.svc.Unlock(ctx, testPassword), ErrNoRememberedSession)
	})

	t.Run("after idle lock", func(t *testing.T) {
		f := newFixture(t, rememberPolicy)
		_, err := f.svc.Login(ctx, testPassword)
		require.NoError(t, err)
		f.guard.Lock(guard.ReasonIdle)

		require.ErrorIs(t, f.svc.Unlock(ctx, "password124"), common.ErrInvalidCredentials)

		require.NoError(t, f.svc.Unlock(ctx, testPassword))
		assert.Equal(t, "r1", f.fc.LastRefreshToken)
		assert.Equal(t, guard.StateUnlocked, f.guard.State())
		assert.Equal(t, "a2", f.guard.AccessToken())
		assert.Equal(t, "r1", f.guard.RefreshToken())
		assert.Equal(t, rememberPolicy, f.guard.Policy())
	})

	t.Run("not remembered by policy", func(t *testing.T) {
		f := newFixture(t, api.SecurityPolicy{AutoLock: true, IdleTimeoutMs: 900000})
		_, err := f.svc.Login(ctx, testPassword)
		require.NoError(t, err)
		f.guard.Lock(guard.ReasonIdle)

		assert.ErrorIs(t, f.svc.Unlock(ctx, testPassword), ErrNoRememberedSession)
	})

	t.Run("revoked on the server", func(t *testing.T) {
		f := newFixture(t, rememberPolicy)
		_, err := f.svc.Login(ctx, testPassword)
		require.NoError(t, err)
		f.guard.Lock(guard.ReasonIdle)
		f.fc.RefreshErr = common.ErrInvalidSession

		assert.ErrorIs(t, f.svc.Unlock(ctx, testPassword), ErrNoRememberedSession)
		_, found, err := f.guard.RestoreRemembered(ctx)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("server unreachable keeps remembered session", func(t *testing.T) {
		f := newFixture(t, rememberPolicy)
		_, err := f.svc.Login(ctx, testPassword)
		require.NoError(t, err)
		f.guard.Lock(guard.ReasonIdle)
		f.fc.RefreshErr = client.ErrUnavailable

		assert.ErrorIs(t, f.svc.Unlock(ctx, testPassword), client.ErrUnavailable)
		_, found, err := f.guard.RestoreRemembered(ctx)
		require.NoError(t, err)
		assert.True(t, found)
	})
}

// restart builds a service over the same local state, the way a new CLI
// process sees it.
func (f *fixture) restart() *fixture {
	g := guard.New(f.meta)
	return &fixture{
		svc:   NewAuthService(f.fc, g, f.meta, logging.Discard()),
		fc:    f.fc,
		guard: g,
		meta:  f.meta,
	}
}

func TestResume(t *testing.T) {
	ctx := context.Background()

	t.Run("new process resumes without the password", func(t *testing.T) {
		f := newFixture(t, rememberPolicy)
		_, err := f.svc.Login(ctx, testPassword)
		require.NoError(t, err)

		next := f.restart()
		require.NoError(t, next.svc.Resume(ctx))
		assert.Equal(t, "r1", next.fc.LastRefreshToken)
		assert.Equal(t, guard.StateUnlocked, next.guard.State())
		assert.Equal(t, "a2", next.guard.AccessToken())
		assert.Equal(t, rememberPolicy, next.guard.Policy())
	})

	t.Run("already unlocked", func(t *testing.T) {
		f := newFixture(t, rememberPolicy)
		_, err := f.svc.Login(ctx, testPassword)
		require.NoError(t, err)

		require.NoError(t, f.svc.Resume(ctx))
		assert.Empty(t, f.fc.LastRefreshToken)
	})

	for _, reason := range []string{guard.ReasonIdle, guard.ReasonManual} {
		t.Run("locked by "+reason+" needs the password", func(t *testing.T) {
			f := newFixture(t, rememberPolicy)
			_, err := f.svc.Login(ctx, testPassword)
			require.NoError(t, err)
			f.guard.Lock(reason)

			require.ErrorIs(t, f.svc.Resume(ctx), ErrUnlockRequired)
			assert.Empty(t, f.fc.LastRefreshToken)
			assert.NotEqual(t, guard.StateUnlocked, f.guard.State())

			require.NoError(t, f.svc.Unlock(ctx, testPassword))
			assert.Equal(t, guard.StateUnlocked, f.guard.State())
		})
	}

	t.Run("nothing remembered", func(t *testing.T) {
		f := newFixture(t, api.SecurityPolicy{AutoLock: true, IdleTimeoutMs: 900000})
		_, err := f.svc.Login(ctx, testPassword)
		require.NoError(t, err)

		assert.ErrorIs(t, f.restart().svc.Resume(ctx), ErrNoRememberedSession)
	})

	t.Run("revoked on the server", func(t *testing.T) {
		f := newFixture(t, rememberPolicy)
		_, err := f.svc.Login(ctx, testPassword)
		require.NoError(t, err)
		f.fc.RefreshErr = common.ErrInvalidSession

		next := f.restart()
		assert.ErrorIs(t, next.svc.Resume(ctx), ErrNoRememberedSession)
		_, found, err := next.guard.RestoreRemembered(ctx)
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("revokes and clears", func(t *testing.T) {
		f := newFixture(t, rememberPolicy)
		_, err := f.svc.Login(ctx, testPassword)
		require.NoError(t, err)

		require.NoError(t, f.svc.Logout(ctx))
		assert.Equal(t, "r1", f.fc.LastLogoutToken)
		assert.Equal(t, guard.StateLoggedOut, f.guard.State())
		_, found, _ := f.guard.RestoreRemembered(ctx)
		assert.False(t, found)
	})

	t.Run("after lock uses remembered token", func(t *testing.T) {
		f := newFixture(t, rememberPolicy)
		_, err := f.svc.Login(ctx, testPassword)
		require.NoError(t, err)
		f.guard.Lock(guard.ReasonIdle)

		require.NoError(t, f.svc.Logout(ctx))
		assert.Equal(t, "r1", f.fc.LastLogoutToken)
	})

	t.Run("server failure still clears locally", func(t *testing.T) {
		f := newFixture(t, rememberPolicy)
		_, err := f.svc.Login(ctx, testPassword)
		require.NoError(t, err)
		f.fc.LogoutErr = client.ErrUnavailable

		assert.ErrorIs(t, f.svc.Logout(ctx), client.ErrUnavailable)
		assert.Equal(t, guard.StateLoggedOut, f.guard.State())
	})
}

func TestProtectedOperationsNeedSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, rememberPolicy)

	assert.ErrorIs(t, f.svc.ChangePassword(ctx, testPassword, "password456"), client.ErrNotLoggedIn)
	assert.ErrorIs(t, f.svc.Reset(ctx, common.ResetConfirmation), client.ErrNotLoggedIn)
	_, err := f.svc.CreateBackup(ctx, testPassword)
	assert.ErrorIs(t, err, client.ErrNotLoggedIn)
	_, err = f.svc.RestoreBackup(ctx, "backup_1.json", testPassword)
	assert.ErrorIs(t, err, client.ErrNotLoggedIn)
	_, err = f.svc.StorageStats(ctx)
	assert.ErrorIs(t, err, client.ErrNotLoggedIn)

	assert.Empty(t, f.fc.Calls)
}

func TestChangePassword_DropsSessionAndRekeysGate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, rememberPolicy)
	_, err := f.svc.Login(ctx, testPassword)
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.ChangePassword(ctx, testPassword, "short"), common.ErrWeakPassword)
	assert.Equal(t, guard.StateUnlocked, f.guard.State())

	require.NoError(t, f.svc.ChangePassword(ctx, testPassword, "password456"))
	assert.Equal(t, guard.StateLoggedOut, f.guard.State())

	ok, err := f.guard.VerifyGate(ctx, []byte("password456"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestChangePassword_ServerErrorKeepsSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, rememberPolicy)
	_, err := f.svc.Login(ctx, testPassword)
	require.NoError(t, err)
	f.fc.ChangeErr = common.ErrInvalidCredentials

	require.ErrorIs(t, f.svc.ChangePassword(ctx, "password000", "password456"), common.ErrInvalidCredentials)
	assert.Equal(t, guard.StateUnlocked, f.guard.State())
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, rememberPolicy)
	_, err := f.svc.Login(ctx, testPassword)
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.Reset(ctx, "reset"), common.ErrResetNotConfirmed)
	assert.NotContains(t, f.fc.Calls, "reset")

	require.NoError(t, f.svc.Reset(ctx, common.ResetConfirmation))
	assert.Equal(t, guard.StateLoggedOut, f.guard.State())

	all, err := f.meta.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestBackupRestoreAndStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, rememberPolicy)
	_, err := f.svc.Login(ctx, testPassword)
	require.NoError(t, err)

	stats, err := f.svc.StorageStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "file", stats.Backend)

	handle, err := f.svc.CreateBackup(ctx, testPassword)
	require.NoError(t, err)
	assert.Equal(t, "backup_1.json", handle)

	f.fc.RestoreErr = common.ErrBackupNotFound
	_, err = f.svc.RestoreBackup(ctx, "nope.json", testPassword)
	require.ErrorIs(t, err, common.ErrBackupNotFound)
	assert.Equal(t, guard.StateUnlocked, f.guard.State())

	f.fc.RestoreErr = nil
	u, err := f.svc.RestoreBackup(ctx, handle, testPassword)
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, guard.StateLoggedOut, f.guard.State())
}

func TestClose(t *testing.T) {
	f := newFixture(t, rememberPolicy)
	require.NoError(t, f.svc.Close(context.Background()))
	assert.True(t, f.fc.Closed)
}

func TestLoadPolicyDefaults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, rememberPolicy)
	svc := f.svc.(*authService)

	assert.Equal(t, int64(900000), svc.loadPolicy(ctx).IdleTimeoutMs)

	require.NoError(t, f.meta.Set(ctx, keySecurityPolicy, []byte(`{"autoLock":false,"idleTimeoutMs":60000}`)))
	p := svc.loadPolicy(ctx)
	assert.False(t, p.AutoLock)
	assert.Equal(t, int64(60000), p.IdleTimeoutMs)

	require.NoError(t, f.meta.Set(ctx, keySecurityPolicy, []byte(`{`)))
	assert.Equal(t, int64(900000), svc.loadPolicy(ctx).IdleTimeoutMs)
}
