// Package presence polls per-device heartbeat status on a fixed interval
// and maintains an online/offline map for the tracked device set.
package presence

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/traderdesk/traderdesk/internal/api"
)

// DefaultInterval is the polling cadence when none is configured.
const DefaultInterval = 10 * time.Second

// StatusClient fetches heartbeat status for one device.
// Implemented by api.Client.
type StatusClient interface {
	DeviceStatus(ctx context.Context, deviceID string) (*api.DeviceStatus, error)
}

// Entry is the tracked status for one device. LastPing survives failed
// polls so the UI keeps showing the last known heartbeat; the online flag
// comes straight from the backend, which is the source of truth.
type Entry struct {
	Online   bool
	LastPing int64
	Err      string
}

// Tracker polls the tracked device set on a fixed interval. The owner
// drives its lifetime explicitly through Start and Stop; the timer is
// armed only while the tracker is started and the set is non-empty, so
// an empty set never leaves an orphaned timer behind.
type Tracker struct {
	client   StatusClient
	interval time.Duration

	mu      sync.Mutex
	devices []string
	tracked map[string]struct{}
	entries map[string]Entry
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewTracker creates a tracker. interval <= 0 uses DefaultInterval.
func NewTracker(client StatusClient, interval time.Duration) *Tracker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Tracker{
		client:   client,
		interval: interval,
		tracked:  make(map[string]struct{}),
		entries:  make(map[string]Entry),
	}
}

// SetDevices replaces the tracked device set. Entries for devices no
// longer in the set are pruned. Going from empty to non-empty (re)arms
// the timer when the tracker is started; going to empty disarms it.
// Changing the contents of a non-empty set does not restart the timer:
// the next tick polls the new set.
func (t *Tracker) SetDevices(deviceIDs []string) {
	t.mu.Lock()
	t.devices = append([]string(nil), deviceIDs...)
	t.tracked = make(map[string]struct{}, len(deviceIDs))
	for _, id := range deviceIDs {
		t.tracked[id] = struct{}{}
	}
	for id := range t.entries {
		if _, ok := t.tracked[id]; !ok {
			delete(t.entries, id)
		}
	}
	t.rearmLocked()
	t.mu.Unlock()
}

// Start enables polling. The timer arms as soon as the set is non-empty.
func (t *Tracker) Start() {
	t.mu.Lock()
	t.started = true
	t.rearmLocked()
	t.mu.Unlock()
}

// Stop disables polling and waits for the poll loop to exit. In-flight
// requests are allowed to complete but their results are dropped.
func (t *Tracker) Stop() {
	t.mu.Lock()
	t.started = false
	t.rearmLocked()
	t.mu.Unlock()
	t.wg.Wait()
}

// Snapshot returns a read-only copy of the presence map.
func (t *Tracker) Snapshot() map[string]Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]Entry, len(t.entries))
	for id, entry := range t.entries {
		out[id] = entry
	}
	return out
}

// Running reports whether the poll loop is armed.
func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}

// rearmLocked reconciles the poll loop with the desired state.
// Caller holds t.mu.
func (t *Tracker) rearmLocked() {
	shouldRun := t.started && len(t.devices) > 0
	running := t.cancel != nil

	switch {
	case shouldRun && !running:
		ctx, cancel := context.WithCancel(context.Background())
		t.cancel = cancel
		t.wg.Add(1)
		go t.loop(ctx)
		log.Debug().Int("devices", len(t.devices)).Msg("presence polling started")
	case !shouldRun && running:
		t.cancel()
		t.cancel = nil
		log.Debug().Msg("presence polling stopped")
	}
}

func (t *Tracker) loop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	// First poll runs immediately; the ticker spaces the rest.
	t.pollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.pollOnce(ctx)
		}
	}
}

// pollOnce issues one status request per tracked device. Requests run
// concurrently and resolve independently: one device failing never blocks
// or aborts the others.
func (t *Tracker) pollOnce(ctx context.Context) {
	t.mu.Lock()
	devices := append([]string(nil), t.devices...)
	t.mu.Unlock()

	var wg sync.WaitGroup
	for _, deviceID := range devices {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, err := t.client.DeviceStatus(ctx, deviceID)
			t.apply(ctx, deviceID, status, err)
		}()
	}
	wg.Wait()
}

// apply records one poll result. Results arriving after Stop, or for a
// device pruned mid-flight, are dropped.
func (t *Tracker) apply(ctx context.Context, deviceID string, status *api.DeviceStatus, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel == nil || ctx.Err() != nil {
		return
	}
	if _, ok := t.tracked[deviceID]; !ok {
		return
	}

	entry := t.entries[deviceID]
	if err != nil {
		entry.Online = false
		entry.Err = err.Error()
		log.Warn().Err(err).Str("deviceID", deviceID).Msg("device status poll failed")
	} else {
		entry.Online = status.Online
		entry.Err = ""
		if status.LastPing > 0 {
			entry.LastPing = status.LastPing
		}
	}
	t.entries[deviceID] = entry
}
