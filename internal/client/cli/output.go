package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/dmitrijs2005/polvault/internal/client/client"
	"github.com/dmitrijs2005/polvault/internal/client/services"
	"github.com/dmitrijs2005/polvault/internal/common"
	"github.com/fatih/color"
)

func success(msg string) string {
	return color.GreenString("✓") + " " + msg
}

func failure(msg string) string {
	return color.RedString("✗") + " " + msg
}

func hint(msg string) string {
	return color.CyanString("→") + " " + msg
}

// describeError turns a service error into a line the user can act on.
func describeError(err error) string {
	switch {
	case errors.Is(err, common.ErrNotConfigured):
		return failure("Vault is not set up\n") + hint("Run "+color.YellowString("polvault setup")+" first")
	case errors.Is(err, common.ErrAlreadyConfigured):
		return failure("Vault is already set up\n") + hint("Use "+color.YellowString("polvault login"))
	case errors.Is(err, common.ErrWeakPassword):
		return failure(fmt.Sprintf("Password must be at least %d characters", common.MinPasswordLength))
	case errors.Is(err, common.ErrInvalidCredentials):
		return failure("Invalid password")
	case errors.Is(err, common.ErrInvalidSession), errors.Is(err, client.ErrUnauthorized),
		errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		return failure("Session is no longer valid\n") + hint("Log in again")
	case errors.Is(err, client.ErrNotLoggedIn):
		return failure("Not logged in\n") + hint("Run "+color.YellowString("login")+" or "+color.YellowString("unlock"))
	case errors.Is(err, services.ErrNoRememberedSession):
		return failure("No remembered session\n") + hint("Run "+color.YellowString("login"))
	case errors.Is(err, common.ErrResetNotConfirmed):
		return failure("Reset not confirmed, nothing was changed")
	case errors.Is(err, common.ErrBackupNotFound):
		return failure("Backup not found")
	case errors.Is(err, common.ErrTooManyRequests):
		return failure("Too many requests, try again later")
	case errors.Is(err, client.ErrUnavailable):
		return failure("Server unavailable")
	default:
		return failure(err.Error())
	}
}

// startSpinner runs a spinner on w until the returned func is called. With
// enabled false it does nothing, which keeps test output and pipes clean.
func startSpinner(w io.Writer, message string, enabled bool) (*spinner.Spinner, func()) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + message
	_ = s.Color("cyan")

	if enabled {
		s.Start()
	}

	return s, func() {
		if s.FinalMSG != "" && !strings.HasSuffix(s.FinalMSG, "\n") {
			s.FinalMSG += "\n"
		}
		if enabled {
			s.Stop()
		} else if s.FinalMSG != "" {
			fmt.Fprint(w, s.FinalMSG)
		}
	}
}
