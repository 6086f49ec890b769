package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/traderdesk/traderdesk/internal/presence"
)

type DevicesCmd struct {
	List  DevicesListCmd  `cmd:"" help:"One-shot status for all of the user's devices"`
	Watch DevicesWatchCmd `cmd:"" help:"Poll device status continuously"`
}

type DevicesListCmd struct {
	Server string `help:"Server URL" env:"TRADERDESK_SERVER"`
}

func (d *DevicesListCmd) Run(ctx context.Context, globals *Globals) error {
	env, err := setup(globals, d.Server)
	if err != nil {
		return err
	}

	if !env.manager.Authenticated() {
		return fmt.Errorf("not logged in")
	}

	statuses, err := env.client.TraderDevicesStatus(ctx, env.manager.UserID())
	if err != nil {
		return fmt.Errorf("failed to fetch device status: %w", err)
	}

	if len(statuses) == 0 {
		fmt.Println("No devices")
		return nil
	}

	now := time.Now()
	for _, status := range statuses {
		fmt.Printf("%-24s %-8s %s\n", status.DeviceID, onlineLabel(status.Online),
			presence.FormatLastPing(status.LastPing, now))
	}

	return nil
}

type DevicesWatchCmd struct {
	Devices  []string      `arg:"" help:"Device IDs to watch"`
	Interval time.Duration `help:"Poll interval (default from config)"`
	Server   string        `help:"Server URL" env:"TRADERDESK_SERVER"`
}

func (d *DevicesWatchCmd) Run(ctx context.Context, globals *Globals) error {
	env, err := setup(globals, d.Server)
	if err != nil {
		return err
	}

	if d.Interval <= 0 {
		d.Interval = env.cfg.PollInterval
	}

	if !env.manager.Authenticated() {
		return fmt.Errorf("not logged in")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Invalidation mid-watch tears the watch down.
	env.manager.Subscribe(cancel)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("Received interrupt signal, shutting down...")
		cancel()
	}()

	tracker := presence.NewTracker(env.client, d.Interval)
	tracker.SetDevices(d.Devices)
	tracker.Start()
	defer tracker.Stop()

	render := time.NewTicker(d.Interval)
	defer render.Stop()

	printSnapshot(tracker.Snapshot())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-render.C:
			printSnapshot(tracker.Snapshot())
		}
	}
}

func printSnapshot(entries map[string]presence.Entry) {
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	now := time.Now()
	fmt.Printf("--- %s ---\n", now.Format("15:04:05"))
	for _, id := range ids {
		entry := entries[id]
		line := fmt.Sprintf("%-24s %-8s %s", id, onlineLabel(entry.Online),
			presence.FormatLastPing(entry.LastPing, now))
		if entry.Err != "" {
			line += fmt.Sprintf(" (error: %s)", entry.Err)
		}
		fmt.Println(line)
	}
}

func onlineLabel(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}
