package cli

import (
	"bufio"
	"context"
	"time"

	"github.com/dmitrijs2005/polvault/internal/buildinfo"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree around a. Without a subcommand it
// starts the interactive shell.
func NewRootCmd(ctx context.Context, a *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "polvault",
		Short: "Client for a single-user password vault",
		Long: `polvault talks to a vault server: set the vault up once, log in to start a
session, and manage backups. Without a command it opens an interactive shell
that locks itself after the configured idle time.

Connection flags (-a, -d, -t, -i, -c) are read before the command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Shell(ctx)
		},
	}

	opts := setupOptions{}
	setupCmd := &cobra.Command{
		Use:   "setup",
		Short: "Create the vault",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Setup(ctx, opts)
		},
	}
	setupCmd.Flags().StringVar(&opts.secretPayload, "secret", "", "secret to store, 0x followed by 64 hex digits")
	setupCmd.Flags().BoolVar(&opts.autoLock, "auto-lock", true, "lock the session after inactivity")
	setupCmd.Flags().BoolVar(&opts.rememberSession, "remember", false, "allow unlocking a session for 24h without a full login")
	setupCmd.Flags().DurationVar(&opts.idleTimeout, "idle-timeout", 15*time.Minute, "inactivity before the session locks")

	root.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show whether the vault is set up",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, args []string) error { return a.Status(ctx) },
		},
		setupCmd,
		&cobra.Command{
			Use:   "login",
			Short: "Log in and open the interactive shell",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.Login(ctx); err != nil {
					return err
				}
				return a.Shell(ctx)
			},
		},
		&cobra.Command{
			Use:   "logout",
			Short: "End the remembered session",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, args []string) error { return a.Logout(ctx) },
		},
		&cobra.Command{
			Use:   "change-password",
			Short: "Change the vault password and end all sessions",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, args []string) error { return a.ChangePassword(ctx) },
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Delete the vault",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, args []string) error { return a.Reset(ctx) },
		},
		&cobra.Command{
			Use:   "backup",
			Short: "Create a backup of the vault",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, args []string) error { return a.Backup(ctx) },
		},
		&cobra.Command{
			Use:   "restore <backupFile>",
			Short: "Restore the vault from a backup",
			Args:  cobra.ExactArgs(1),
			RunE:  func(cmd *cobra.Command, args []string) error { return a.Restore(ctx, args[0]) },
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Show storage statistics",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, args []string) error { return a.Stats(ctx) },
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print build information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				buildinfo.PrintBuildData(cmd.OutOrStdout())
			},
		},
	)

	return root
}

// Shell runs the interactive session until the user exits or ctx ends. A
// session is resumed or started first, then the idle lock and the online
// watcher run alongside the prompt.
func (a *App) Shell(ctx context.Context) error {
	printlnFn("polvault shell (type 'help' for commands)")

	if err := a.ensureSession(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.checkOnline(ctx)
	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	shell := &shellExec{App: a}
	shell.touch()
	runREPL(ctx, shell, a.getStatus, bufio.NewScanner(a.reader))
	a.guard.Stop()
	return nil
}

// shellExec restarts the idle ticker whenever a command leaves the guard
// unlocked, so a session started from inside the shell is watched too.
type shellExec struct {
	*App
}

func (s *shellExec) touch() {
	s.App.touch()
	s.ensureTicker()
}

func (s *shellExec) Login(ctx context.Context) error {
	err := s.App.Login(ctx)
	s.ensureTicker()
	return err
}

func (s *shellExec) Unlock(ctx context.Context) error {
	err := s.App.Unlock(ctx)
	s.ensureTicker()
	return err
}

func (s *shellExec) ensureTicker() {
	if s.isLoggedIn() {
		s.guard.Start()
	}
}
