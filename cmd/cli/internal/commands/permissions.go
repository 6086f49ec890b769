package commands

import (
	"context"
	"fmt"

	"github.com/traderdesk/traderdesk/internal/rbac"
)

type PermissionsCmd struct {
	Check  []string `help:"On-demand check: ACTION OBJECT" placeholder:"ACTION,OBJECT"`
	Server string   `help:"Server URL" env:"TRADERDESK_SERVER"`
}

func (p *PermissionsCmd) Run(ctx context.Context, globals *Globals) error {
	if len(p.Check) != 0 && len(p.Check) != 2 {
		return fmt.Errorf("--check requires exactly an action and an object")
	}

	env, err := setup(globals, p.Server)
	if err != nil {
		return err
	}

	if !env.manager.Authenticated() {
		return fmt.Errorf("not logged in")
	}

	resolver := rbac.NewResolver(env.client, env.manager)
	state := resolver.Refresh(ctx)

	fmt.Printf("Admin:     %v\n", state.IsAdmin)
	fmt.Printf("Team lead: %v\n", state.IsTeamLead)

	if len(p.Check) == 2 {
		allowed := resolver.Check(ctx, p.Check[0], p.Check[1])
		fmt.Printf("%s %s: %v\n", p.Check[0], p.Check[1], allowed)
	}

	return nil
}
