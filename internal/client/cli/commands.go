package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/polvault/internal/api"
	"github.com/dmitrijs2005/polvault/internal/client/guard"
	"github.com/dmitrijs2005/polvault/internal/client/services"
	"github.com/dmitrijs2005/polvault/internal/common"
	"github.com/fatih/color"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

var errPasswordMismatch = errors.New("passwords do not match")

func (a *App) readPassword(prompt string) (string, error) {
	pw, err := getPassword(a.out, prompt)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)
	return string(pw), nil
}

func (a *App) readNewPassword(prompt string) (string, error) {
	first, err := a.readPassword(prompt)
	if err != nil {
		return "", err
	}
	second, err := a.readPassword("Repeat " + prompt)
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errPasswordMismatch
	}
	return first, nil
}

func (a *App) report(err error) error {
	if err != nil {
		if errors.Is(err, errPasswordMismatch) {
			fmt.Fprintln(a.out, failure("Passwords do not match"))
		} else {
			fmt.Fprintln(a.out, describeError(err))
		}
	}
	return err
}

func (a *App) Status(ctx context.Context) error {
	_, done := startSpinner(a.out, "Checking vault...", a.spin)
	st, err := a.auth.Status(ctx)
	done()
	if err != nil {
		return a.report(err)
	}

	if st.RequiresSetup {
		fmt.Fprintln(a.out, hint("Vault is empty, run "+color.YellowString("polvault setup")))
	} else {
		fmt.Fprintln(a.out, success("Vault is set up"))
	}
	fmt.Fprintln(a.out, hint("Local session: "+a.guard.State().String()))
	return nil
}

type setupOptions struct {
	secretPayload   string
	autoLock        bool
	rememberSession bool
	idleTimeout     time.Duration
}

func (a *App) Setup(ctx context.Context, opts setupOptions) error {
	password, err := a.readNewPassword("New vault password")
	if err != nil {
		return a.report(err)
	}

	policy := &api.SecurityPolicy{
		AutoLock:        opts.autoLock,
		RememberSession: opts.rememberSession,
		IdleTimeoutMs:   opts.idleTimeout.Milliseconds(),
	}

	s, done := startSpinner(a.out, "Setting up vault...", a.spin)
	user, err := a.auth.Setup(ctx, password, opts.secretPayload, policy)
	if err != nil {
		done()
		return a.report(err)
	}
	msg := success("Vault created")
	if user.PublicIdentifier != "" {
		msg += "\n" + hint("Public identifier: "+color.YellowString(user.PublicIdentifier))
	}
	s.FinalMSG = msg + "\n" + hint("Run "+color.YellowString("polvault login")+" to start a session")
	done()
	return nil
}

func (a *App) Login(ctx context.Context) error {
	password, err := a.readPassword("Vault password")
	if err != nil {
		return a.report(err)
	}
	return a.login(ctx, password)
}

func (a *App) login(ctx context.Context, password string) error {
	s, done := startSpinner(a.out, "Logging in...", a.spin)
	user, err := a.auth.Login(ctx, password)
	if err != nil {
		done()
		return a.report(err)
	}
	msg := success("Logged in")
	if user.SecurityPolicy.AutoLock {
		idle := time.Duration(user.SecurityPolicy.IdleTimeoutMs) * time.Millisecond
		msg += "\n" + hint("Session locks after "+idle.String()+" of inactivity")
	}
	s.FinalMSG = msg
	done()
	return nil
}

// Unlock resumes a remembered session with the local password.
func (a *App) Unlock(ctx context.Context) error {
	password, err := a.readPassword("Vault password")
	if err != nil {
		return a.report(err)
	}
	if err := a.auth.Unlock(ctx, password); err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, success("Session unlocked"))
	return nil
}

// ensureSession makes sure there is an unlocked session. A remembered
// session is resumed without a prompt; after a lock in this process the
// password is asked for, falling back to a full login.
func (a *App) ensureSession(ctx context.Context) error {
	if a.isLoggedIn() {
		return nil
	}
	err := a.auth.Resume(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, services.ErrNoRememberedSession) && !errors.Is(err, services.ErrUnlockRequired) {
		return a.report(err)
	}

	password, err := a.readPassword("Vault password")
	if err != nil {
		return a.report(err)
	}
	err = a.auth.Unlock(ctx, password)
	if errors.Is(err, services.ErrNoRememberedSession) {
		return a.login(ctx, password)
	}
	return a.report(err)
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, success("Logged out"))
	return nil
}

// Lock drops the in-memory session but keeps the remembered one.
func (a *App) Lock() {
	a.guard.Lock(guard.ReasonManual)
	fmt.Fprintln(a.out, success("Session locked"))
}

func (a *App) ChangePassword(ctx context.Context) error {
	if err := a.ensureSession(ctx); err != nil {
		return err
	}
	current, err := a.readPassword("Current password")
	if err != nil {
		return a.report(err)
	}
	next, err := a.readNewPassword("New password")
	if err != nil {
		return a.report(err)
	}

	s, done := startSpinner(a.out, "Changing password...", a.spin)
	if err := a.auth.ChangePassword(ctx, current, next); err != nil {
		done()
		return a.report(err)
	}
	s.FinalMSG = success("Password changed") + "\n" + hint("All sessions were ended, log in again")
	done()
	return nil
}

func (a *App) Reset(ctx context.Context) error {
	if err := a.ensureSession(ctx); err != nil {
		return err
	}
	confirmation, err := getSimpleText(a.reader,
		color.RedString("This deletes the vault and every session. Type "+common.ResetConfirmation+" to confirm"), a.out)
	if err != nil {
		return a.report(err)
	}
	if err := a.auth.Reset(ctx, confirmation); err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, success("Vault reset"))
	return nil
}

func (a *App) Backup(ctx context.Context) error {
	if err := a.ensureSession(ctx); err != nil {
		return err
	}
	password, err := a.readPassword("Vault password")
	if err != nil {
		return a.report(err)
	}

	s, done := startSpinner(a.out, "Creating backup...", a.spin)
	handle, err := a.auth.CreateBackup(ctx, password)
	if err != nil {
		done()
		return a.report(err)
	}
	s.FinalMSG = success("Backup created: " + color.YellowString(handle))
	done()
	return nil
}

func (a *App) Restore(ctx context.Context, handle string) error {
	if err := a.ensureSession(ctx); err != nil {
		return err
	}
	password, err := a.readPassword("Password the backup was taken with")
	if err != nil {
		return a.report(err)
	}

	s, done := startSpinner(a.out, "Restoring backup...", a.spin)
	if _, err := a.auth.RestoreBackup(ctx, handle, password); err != nil {
		done()
		return a.report(err)
	}
	s.FinalMSG = success("Restored "+color.YellowString(handle)) + "\n" + hint("All sessions were ended, log in again")
	done()
	return nil
}

func (a *App) Stats(ctx context.Context) error {
	if err := a.ensureSession(ctx); err != nil {
		return err
	}
	st, err := a.auth.StorageStats(ctx)
	if err != nil {
		return a.report(err)
	}

	fmt.Fprintf(a.out, "Backend:          %s\n", st.Backend)
	fmt.Fprintf(a.out, "Configured:       %t\n", st.Configured)
	if st.RecordUpdatedAt != nil {
		fmt.Fprintf(a.out, "Record updated:   %s\n", st.RecordUpdatedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(a.out, "Active sessions:  %d\n", st.ActiveSessions)
	fmt.Fprintf(a.out, "Backups:          %d\n", len(st.Backups))
	for _, b := range st.Backups {
		fmt.Fprintf(a.out, "  %s  %d bytes  %s\n", b.Handle, b.Size, b.CreatedAt.Format(time.RFC3339))
	}
	return nil
}
