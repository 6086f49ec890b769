package commands

import (
	"context"
	"fmt"

	"github.com/traderdesk/traderdesk/internal/session"
)

type WhoamiCmd struct{}

func (w *WhoamiCmd) Run(ctx context.Context, globals *Globals) error {
	env, err := setup(globals, "")
	if err != nil {
		return err
	}

	sess := env.manager.Session()
	if !sess.Authenticated {
		return fmt.Errorf("not logged in")
	}

	fmt.Printf("User:  %s\n", sess.UserID)

	claims, err := session.DecodeToken(sess.Token)
	if err == nil && claims.ExpiresAt != nil {
		fmt.Printf("Token expires: %s\n", claims.ExpiresAt.Time.Format("2006-01-02 15:04:05 MST"))
	} else {
		fmt.Println("Token expires: never")
	}

	return nil
}
