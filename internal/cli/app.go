// Package cli implements the storefront command line session client.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/binkeyit/storefront/internal/client"
)

// readPassword is swapped in tests to avoid touching the terminal.
var readPassword = term.ReadPassword

const usage = `usage: storefront-cli <command>

commands:
  login [email]   sign in and store the session
  me              show the signed-in account
  refresh         renew the access credential
  logout          end the session and forget the stored credentials`

// ErrUsage is returned for an unknown or missing command.
var ErrUsage = errors.New("invalid usage")

// App runs CLI commands against the API.
type App struct {
	client *client.Client
	in     *bufio.Reader
	out    io.Writer
}

// NewApp wires an App around a session client.
func NewApp(c *client.Client, in io.Reader, out io.Writer) *App {
	return &App{client: c, in: bufio.NewReader(in), out: out}
}

// Run executes the command named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.out, usage)
		return ErrUsage
	}

	switch args[0] {
	case "login":
		return a.login(ctx, args[1:])
	case "me":
		return a.me(ctx)
	case "refresh":
		if _, err := a.client.Refresh(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "access credential renewed")
		return nil
	case "logout":
		if err := a.client.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "logged out")
		return nil
	case "help", "-h", "--help":
		fmt.Fprintln(a.out, usage)
		return nil
	default:
		fmt.Fprintln(a.out, usage)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
}

func (a *App) login(ctx context.Context, args []string) error {
	var email string
	if len(args) > 0 {
		email = strings.TrimSpace(args[0])
	}
	if email == "" {
		fmt.Fprint(a.out, "Email: ")
		line, err := a.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		email = strings.TrimSpace(line)
	}

	fmt.Fprint(a.out, "Password: ")
	password, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(a.out)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	if err := a.client.Login(ctx, email, string(password)); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "signed in as %s\n", email)
	return nil
}

func (a *App) me(ctx context.Context) error {
	user, err := a.client.UserDetails(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "id:       %s\nname:     %s\nemail:    %s\nverified: %t\nrole:     %s\n",
		user.ID, user.Name, user.Email, user.VerifyEmail, user.Role)
	return nil
}
