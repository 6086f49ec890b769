package commands

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/traderdesk/traderdesk/internal/api"
)

type LoginCmd struct {
	Login     string `arg:"" help:"Platform login name"`
	Password  string `help:"Password (prompted when omitted)" env:"TRADERDESK_PASSWORD"`
	TwoFACode string `help:"Two-factor code" name:"2fa"`
	Server    string `help:"Server URL" env:"TRADERDESK_SERVER"`
}

func (l *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	env, err := setup(globals, l.Server)
	if err != nil {
		return err
	}

	password := l.Password
	if password == "" {
		password, err = promptPassword()
		if err != nil {
			return err
		}
	}

	resp, err := env.client.Login(ctx, api.LoginRequest{
		Login:     l.Login,
		Password:  password,
		TwoFACode: l.TwoFACode,
	})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if err := env.manager.Login(resp.AccessToken); err != nil {
		return err
	}

	fmt.Printf("Logged in as %s\n", env.manager.UserID())
	return nil
}

// promptPassword reads the password from the terminal with echo disabled.
func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no terminal available for password prompt (use --password)")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	return string(password), nil
}
