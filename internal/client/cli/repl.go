package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the shell needs. App satisfies it.
type execIface interface {
	isLoggedIn() bool
	touch()
	Status(ctx context.Context) error
	Login(ctx context.Context) error
	Unlock(ctx context.Context) error
	Stats(ctx context.Context) error
	Backup(ctx context.Context) error
	Restore(ctx context.Context, handle string) error
	ChangePassword(ctx context.Context) error
	Reset(ctx context.Context) error
	Logout(ctx context.Context) error
	Lock()
}

// runREPL reads commands from scanner until EOF, "exit" or "quit". Every
// command counts as activity for the idle lock. Handlers print their own
// errors, so the loop ignores them.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("polvault %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if a.isLoggedIn() {
			a.touch()
		}

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: status, stats, backup, restore <backupFile>, change-password, reset, lock, logout, exit")
			} else {
				printlnFn("Available commands: status, login, unlock, logout, exit")
			}

		case "status":
			_ = a.Status(ctx)

		case "login":
			_ = a.Login(ctx)

		case "unlock":
			_ = a.Unlock(ctx)

		case "stats":
			_ = a.Stats(ctx)

		case "backup":
			_ = a.Backup(ctx)

		case "restore":
			if len(args) != 1 {
				printlnFn("Usage: restore <backupFile>")
				continue
			}
			_ = a.Restore(ctx, args[0])

		case "change-password":
			_ = a.ChangePassword(ctx)

		case "reset":
			_ = a.Reset(ctx)

		case "lock":
			a.Lock()

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
