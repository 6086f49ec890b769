package commands

import (
	"github.com/traderdesk/traderdesk/internal/api"
	"github.com/traderdesk/traderdesk/internal/config"
	"github.com/traderdesk/traderdesk/internal/session"
)

type Globals struct {
	Debug   bool
	Version string
	Config  string
	Profile string
}

// env bundles the wired subsystem for one command invocation: config,
// session store, session manager and the request pipeline. The manager is
// initialized before any command logic runs, so session state is settled
// by the time a command reads it.
type env struct {
	cfg     config.Config
	store   *session.Store
	manager *session.Manager
	client  *api.Client
}

// setup builds the env. serverOverride, when non-empty, wins over the
// config file.
func setup(globals *Globals, serverOverride string) (*env, error) {
	cfg, err := config.Load(globals.Config)
	if err != nil {
		return nil, err
	}
	if serverOverride != "" {
		cfg.ServerURL = serverOverride
	}

	store, err := session.NewStore(globals.Profile)
	if err != nil {
		return nil, err
	}

	manager := session.NewManager(store)
	client := api.NewClient(api.Config{
		ServerURL: cfg.ServerURL,
		Timeout:   cfg.RequestTimeout,
	}, store, manager.Invalidate)

	manager.Initialize()

	return &env{cfg: cfg, store: store, manager: manager, client: client}, nil
}
