package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"

	"github.com/traderdesk/traderdesk/cmd/cli/internal/commands"
	"github.com/traderdesk/traderdesk/internal/logger"
)

var (
	version = "dev"
	cli     struct {
		Login       commands.LoginCmd       `cmd:"" help:"Log in to the platform"`
		Logout      commands.LogoutCmd      `cmd:"" help:"Clear the current session"`
		Whoami      commands.WhoamiCmd      `cmd:"" help:"Show the current session"`
		Permissions commands.PermissionsCmd `cmd:"" help:"Show resolved permissions"`
		Devices     commands.DevicesCmd     `cmd:"" help:"Device presence"`
		Config      string                  `help:"Config file path" env:"TRADERDESK_CONFIG"`
		Profile     string                  `help:"Profile directory (default ~/.traderdesk)" env:"TRADERDESK_PROFILE"`
		Debug       bool                    `help:"Enable debug mode."`
		Version     kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	log.Logger = logger.Setup(cli.Debug)
	err := cmd.Run(&commands.Globals{
		Debug:   cli.Debug,
		Version: version,
		Config:  cli.Config,
		Profile: cli.Profile,
	})
	cmd.FatalIfErrorf(err)
}
