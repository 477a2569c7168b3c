// Package guard keeps the client side of a vault session: a local password
// gate, the in-memory session tokens, the idle auto-lock countdown and the
// optional remembered session. It is advisory only. The server stays the
// authority on every token it holds.
package guard

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/polvault/internal/api"
	"github.com/dmitrijs2005/polvault/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/polvault/internal/common"
	"github.com/dmitrijs2005/polvault/internal/cryptox"
)

const (
	keyGateSalt          = "gate_salt"
	keyGateVerifier      = "gate_verifier"
	keyRememberedSession = "remembered_session"

	gateSaltSize = 16

	// RememberValidity bounds how long a remembered session may be restored.
	RememberValidity = 24 * time.Hour

	DefaultTickInterval = time.Second
	DefaultWarnAt       = 60 * time.Second

	ReasonIdle   = "idle"
	ReasonManual = "manual"
)

var ErrNoGate = errors.New("local gate is not set up")

type State int

const (
	StateLoggedOut State = iota
	StateUnlocked
)

func (s State) String() string {
	if s == StateUnlocked {
		return "unlocked"
	}
	return "logged out"
}

// Session is the shadow copy of the tokens the server issued.
type Session struct {
	AccessToken  string
	RefreshToken string
}

type rememberedSession struct {
	Token     string `json:"token"`
	Timestamp int64  `json:"timestamp"`
}

type Guard struct {
	meta metadata.Repository
	now  func() time.Time

	tickInterval time.Duration
	warnAt       time.Duration

	onWarning func(remaining time.Duration)
	onLock    func(reason string)

	mu           sync.Mutex
	state        State
	session      Session
	policy       api.SecurityPolicy
	lastActivity time.Time
	warned       bool
	lastReason   string

	tickerMu sync.Mutex
	stop     chan struct{}
	done     chan struct{}
}

type Option func(*Guard)

func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

func WithTickInterval(d time.Duration) Option {
	return func(g *Guard) { g.tickInterval = d }
}

// OnWarning is called once per countdown when the idle budget drops to the
// warning threshold.
func OnWarning(fn func(remaining time.Duration)) Option {
	return func(g *Guard) { g.onWarning = fn }
}

// OnLock is called after the guard locks, with the lock reason. For idle
// locks fn runs on the ticker goroutine and must not call Start, Stop or Lock.
func OnLock(fn func(reason string)) Option {
	return func(g *Guard) { g.onLock = fn }
}

func New(meta metadata.Repository, opts ...Option) *Guard {
	g := &Guard{
		meta:         meta,
		now:          time.Now,
		tickInterval: DefaultTickInterval,
		warnAt:       DefaultWarnAt,
		onWarning:    func(time.Duration) {},
		onLock:       func(string) {},
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// SetupGate stores a fresh salt and the verifier of a key derived from
// password. Any previous gate is replaced.
func (g *Guard) SetupGate(ctx context.Context, password []byte) error {
	salt := common.GenerateRandByteArray(gateSaltSize)
	key := cryptox.DeriveKey(password, salt)
	defer common.WipeByteArray(key)

	if err := g.meta.Set(ctx, keyGateSalt, salt); err != nil {
		return fmt.Errorf("store gate salt: %w", err)
	}
	if err := g.meta.Set(ctx, keyGateVerifier, cryptox.MakeVerifier(key)); err != nil {
		return fmt.Errorf("store gate verifier: %w", err)
	}
	return nil
}

// VerifyGate reports whether password matches the stored gate.
func (g *Guard) VerifyGate(ctx context.Context, password []byte) (bool, error) {
	salt, err := g.meta.Get(ctx, keyGateSalt)
	if errors.Is(err, common.ErrorNotFound) {
		return false, ErrNoGate
	}
	if err != nil {
		return false, err
	}
	verifier, err := g.meta.Get(ctx, keyGateVerifier)
	if errors.Is(err, common.ErrorNotFound) {
		return false, ErrNoGate
	}
	if err != nil {
		return false, err
	}

	key := cryptox.DeriveKey(password, salt)
	defer common.WipeByteArray(key)

	return subtle.ConstantTimeCompare(verifier, cryptox.MakeVerifier(key)) == 1, nil
}

// BeginSession installs the tokens and policy and starts a fresh idle
// countdown. It does not start the ticker.
func (g *Guard) BeginSession(s Session, policy api.SecurityPolicy) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.session = s
	g.policy = policy
	g.state = StateUnlocked
	g.lastActivity = g.now()
	g.warned = false
	g.lastReason = ""
}

// RecordActivity restarts the idle countdown and re-arms the warning.
func (g *Guard) RecordActivity() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateUnlocked {
		return
	}
	g.lastActivity = g.now()
	g.warned = false
}

// Remaining is the idle budget left, or the full timeout when auto-lock is
// off.
func (g *Guard) Remaining() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.remainingLocked()
}

func (g *Guard) remainingLocked() time.Duration {
	idle := time.Duration(g.policy.IdleTimeoutMs) * time.Millisecond
	if !g.policy.AutoLock {
		return idle
	}
	return idle - g.now().Sub(g.lastActivity)
}

// Tick advances the countdown once. It returns true when the guard is no
// longer unlocked, either because this tick locked it or because it had
// already left the unlocked state.
func (g *Guard) Tick() bool {
	g.mu.Lock()

	if g.state != StateUnlocked {
		g.mu.Unlock()
		return true
	}
	if !g.policy.AutoLock {
		g.mu.Unlock()
		return false
	}

	remaining := g.remainingLocked()
	if remaining <= 0 {
		g.clearLocked(ReasonIdle)
		g.mu.Unlock()
		g.onLock(ReasonIdle)
		return true
	}

	warn := remaining <= g.warnAt && !g.warned
	if warn {
		g.warned = true
	}
	g.mu.Unlock()

	if warn {
		g.onWarning(remaining)
	}
	return false
}

// Start runs Tick on a ticker until the guard locks or Stop is called. Any
// previous ticker is stopped first.
func (g *Guard) Start() {
	g.Stop()

	g.tickerMu.Lock()
	defer g.tickerMu.Unlock()

	stop := make(chan struct{})
	done := make(chan struct{})
	g.stop, g.done = stop, done

	go func() {
		defer close(done)
		t := time.NewTicker(g.tickInterval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				if g.Tick() {
					return
				}
			}
		}
	}()
}

// Stop halts the ticker and waits for its goroutine to exit.
func (g *Guard) Stop() {
	g.tickerMu.Lock()
	stop, done := g.stop, g.done
	g.stop, g.done = nil, nil
	g.tickerMu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Lock stops the countdown and drops the shadow session.
func (g *Guard) Lock(reason string) {
	g.Stop()

	g.mu.Lock()
	wasUnlocked := g.state == StateUnlocked
	g.clearLocked(reason)
	g.mu.Unlock()

	if wasUnlocked {
		g.onLock(reason)
	}
}

// Logout locks the guard and forgets the remembered session. Server-side
// revocation is up to the caller.
func (g *Guard) Logout(ctx context.Context) error {
	g.Lock(ReasonManual)
	if err := g.meta.Delete(ctx, keyRememberedSession); err != nil {
		return fmt.Errorf("forget session: %w", err)
	}
	return nil
}

// Remember persists the refresh token when the policy allows it.
func (g *Guard) Remember(ctx context.Context) error {
	g.mu.Lock()
	remember := g.policy.RememberSession && g.state == StateUnlocked
	token := g.session.RefreshToken
	now := g.now()
	g.mu.Unlock()

	if !remember || token == "" {
		return nil
	}

	data, err := json.Marshal(rememberedSession{Token: token, Timestamp: now.UnixMilli()})
	if err != nil {
		return err
	}
	if err := g.meta.Set(ctx, keyRememberedSession, data); err != nil {
		return fmt.Errorf("remember session: %w", err)
	}
	return nil
}

// RestoreRemembered returns the remembered refresh token if one exists and
// is younger than RememberValidity. Stale or unreadable entries are removed.
func (g *Guard) RestoreRemembered(ctx context.Context) (string, bool, error) {
	data, err := g.meta.Get(ctx, keyRememberedSession)
	if errors.Is(err, common.ErrorNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	var rs rememberedSession
	if err := json.Unmarshal(data, &rs); err != nil || rs.Token == "" ||
		g.now().Sub(time.UnixMilli(rs.Timestamp)) >= RememberValidity {
		if err := g.meta.Delete(ctx, keyRememberedSession); err != nil {
			return "", false, err
		}
		return "", false, nil
	}
	return rs.Token, true, nil
}

// Reset locks the guard and wipes all local state.
func (g *Guard) Reset(ctx context.Context) error {
	g.Lock(ReasonManual)
	if err := g.meta.Clear(ctx); err != nil {
		return fmt.Errorf("clear local state: %w", err)
	}
	return nil
}

func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// LastLockReason is empty until the guard has locked at least once since
// the last BeginSession.
func (g *Guard) LastLockReason() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastReason
}

func (g *Guard) Policy() api.SecurityPolicy {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.policy
}

func (g *Guard) AccessToken() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session.AccessToken
}

func (g *Guard) RefreshToken() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session.RefreshToken
}

// SetAccessToken replaces the access token after a refresh. It is ignored
// once the guard has locked.
func (g *Guard) SetAccessToken(token string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == StateUnlocked {
		g.session.AccessToken = token
	}
}

func (g *Guard) clearLocked(reason string) {
	g.session = Session{}
	g.state = StateLoggedOut
	g.warned = false
	g.lastReason = reason
}
