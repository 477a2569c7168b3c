package server

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/polvault/internal/server/config"
	"github.com/dmitrijs2005/polvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/polvault/internal/server/repositories/revocations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.LoadDefaults()
	c.StorageDir = t.TempDir()
	c.AccessSecret = "access-secret"
	c.RefreshSecret = "refresh-secret"
	c.EndpointAddrGRPC = "127.0.0.1:0"
	c.EndpointAddrHTTP = "127.0.0.1:0"
	c.BcryptCost = 4
	c.LogLevel = "error"
	return c
}

func TestNewApp_InvalidConfig(t *testing.T) {
	c := testConfig(t)
	c.RefreshSecret = c.AccessSecret

	_, err := NewApp(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config")
}

func TestNewApp_PostgresOpenFails(t *testing.T) {
	orig := openPostgres
	t.Cleanup(func() { openPostgres = orig })
	openPostgres = func(ctx context.Context, dsn string) (repomanager.RepositoryManager, error) {
		return nil, errors.New("connection refused")
	}

	c := testConfig(t)
	c.StorageBackend = config.StoragePostgres

	_, err := NewApp(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage init error")
}

func TestApp_RunFlushesOnShutdown(t *testing.T) {
	c := testConfig(t)

	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "file", app.repos.Backend())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		app.Run(ctx)
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}

	_, err = os.Stat(filepath.Join(c.StorageDir, revocations.FileName))
	require.NoError(t, err, "final flush writes the session snapshot")
}
