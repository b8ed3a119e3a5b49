// Package admincli implements the out-of-band administration commands:
// bootstrapping an admin account and applying schema migrations.
package admincli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/dmitrijs2005/tourdesk/internal/common"
	"github.com/dmitrijs2005/tourdesk/internal/server/models"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

const usage = `Usage:
  tourdesk-admin create-admin <username> <email> [<password>]
  tourdesk-admin migrate

The password is prompted for when omitted.`

// AdminCreator creates admin accounts.
type AdminCreator interface {
	CreateAdmin(ctx context.Context, userName, email, password string) (*models.User, error)
}

// Migrator applies pending schema migrations.
type Migrator func(ctx context.Context) error

type CLI struct {
	admins  AdminCreator
	migrate Migrator
	out     io.Writer
}

func New(admins AdminCreator, migrate Migrator, out io.Writer) *CLI {
	return &CLI{admins: admins, migrate: migrate, out: out}
}

// Run executes the command in args and returns the process exit code.
// Failures are reported on out rather than returned.
func (c *CLI) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(c.out, usage)
		return 2
	}

	switch args[0] {
	case "create-admin":
		return c.createAdmin(ctx, args[1:])
	case "migrate":
		return c.runMigrations(ctx)
	case "help", "-h", "--help":
		fmt.Fprintln(c.out, usage)
		return 0
	default:
		fmt.Fprintf(c.out, "Unknown command: %s\n\n%s\n", args[0], usage)
		return 2
	}
}

func (c *CLI) createAdmin(ctx context.Context, args []string) int {
	if len(args) < 2 || len(args) > 3 {
		fmt.Fprintln(c.out, usage)
		return 2
	}
	userName, email := args[0], args[1]

	var password string
	if len(args) == 3 {
		password = args[2]
	} else {
		pw, err := c.promptPassword()
		if err != nil {
			fmt.Fprintf(c.out, "Error: cannot read password: %v\n", err)
			return 1
		}
		password = string(pw)
		common.WipeByteArray(pw)
	}

	user, err := c.admins.CreateAdmin(ctx, userName, email, password)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %s\n", describe(err))
		return 1
	}

	fmt.Fprintf(c.out, "Admin %s <%s> created.\n", user.UserName, user.Email)
	return 0
}

func (c *CLI) promptPassword() ([]byte, error) {
	fmt.Fprint(c.out, "Password: ")
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(c.out)
	return pw, err
}

func (c *CLI) runMigrations(ctx context.Context) int {
	if err := c.migrate(ctx); err != nil {
		fmt.Fprintf(c.out, "Error: migration failed: %v\n", err)
		return 1
	}
	fmt.Fprintln(c.out, "Migrations applied.")
	return 0
}

// describe renders err as the operator should read it.
func describe(err error) string {
	var verr *common.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, common.ErrorConflict):
		return err.Error()
	default:
		return "could not create admin, see logs"
	}
}
