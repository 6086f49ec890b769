package commands

import (
	"context"
	"fmt"
)

type LogoutCmd struct{}

func (l *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	env, err := setup(globals, "")
	if err != nil {
		return err
	}

	env.manager.Logout()

	fmt.Println("Logged out")
	return nil
}
