package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/polvault/internal/client/client"
	"github.com/dmitrijs2005/polvault/internal/client/config"
	"github.com/dmitrijs2005/polvault/internal/client/guard"
	"github.com/dmitrijs2005/polvault/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/polvault/internal/client/services"
	"github.com/dmitrijs2005/polvault/internal/logging"
	"github.com/fatih/color"
	"golang.org/x/term"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config *config.Config
	auth   services.AuthService
	guard  *guard.Guard
	db     *sql.DB
	reader *bufio.Reader
	out    io.Writer
	spin   bool

	modeMu sync.Mutex
	mode   Mode
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	db, err := client.InitDatabase(ctx, c.LocalDBPath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	a := &App{
		config: c,
		db:     db,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		spin:   term.IsTerminal(int(os.Stdout.Fd())),
	}

	meta := metadata.NewSQLiteRepository(db)
	a.guard = guard.New(meta, guard.OnWarning(a.warnIdle), guard.OnLock(a.notifyLock))

	apiClient, err := client.NewVaultClient(c.ServerEndpointAddr, c.RequestTimeout, a.guard)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	a.auth = services.NewAuthService(apiClient, a.guard, meta, logging.NewJSONLogger(os.Stderr, "warn"))
	return a, nil
}

// Close stops the idle ticker and releases the connection and database.
func (a *App) Close(ctx context.Context) error {
	err := a.auth.Close(ctx)
	if a.db != nil {
		if cerr := a.db.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (a *App) warnIdle(remaining time.Duration) {
	fmt.Fprintln(a.out, "\n"+color.YellowString("!")+fmt.Sprintf(" Session locks in %s unless there is activity", remaining.Round(time.Second)))
}

func (a *App) notifyLock(reason string) {
	if reason == guard.ReasonIdle {
		fmt.Fprintln(a.out, "\n"+failure("Session locked after inactivity")+"\n"+hint("Run "+color.YellowString("unlock")+" to continue"))
	}
}

func (a *App) isLoggedIn() bool {
	return a.guard.State() == guard.StateUnlocked
}

// touch counts a user command as activity for the idle countdown.
func (a *App) touch() {
	a.guard.RecordActivity()
}

func (a *App) setMode(mode Mode) {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	if a.mode != mode {
		a.mode = mode
		fmt.Fprintln(a.out, hint(fmt.Sprintf("Switched to %s mode", mode)))
	}
}

func (a *App) Mode() Mode {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	return a.mode
}

func (a *App) getStatus() string {
	s := a.guard.State().String()
	if m := a.Mode(); m != "" {
		s = s + " " + string(m)
	}
	return fmt.Sprintf("(%s)", s)
}

// StartOnlineStatusWatcher pings the server every interval and flips the
// connectivity mode until ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := a.auth.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}
