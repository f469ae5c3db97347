package hub

import (
	"context"
	"log/slog"
	"time"

	"fabtrack/internal/core/domain"
	"fabtrack/pkg/logging"
)

// Heartbeat periodically pushes a keep-alive event to every connection.
// It defeats idle-timeout proxies and doubles as a liveness probe: a failed
// heartbeat write prunes the dead connection just like any other broadcast.
// One instance runs per process, started at boot and stopped with ctx.
type Heartbeat struct {
	hub      *Hub
	interval time.Duration
	log      *slog.Logger
}

func NewHeartbeat(hub *Hub, interval time.Duration, log *slog.Logger) *Heartbeat {
	return &Heartbeat{hub: hub, interval: interval, log: log}
}

// Run blocks until ctx is cancelled.
func (hb *Heartbeat) Run(ctx context.Context) {
	ticker := time.NewTicker(hb.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hb.tick()
		}
	}
}

func (hb *Heartbeat) tick() {
	payload := domain.HeartbeatPayload{
		Time:        time.Now().UTC().Format(time.RFC3339Nano),
		Connections: hb.hub.reg.TotalConnections(),
	}
	sent, err := hb.hub.Broadcast(domain.EventHeartbeat, payload, "")
	if err != nil {
		hb.log.Warn("heartbeat broadcast failed", logging.Err(err))
		return
	}
	if sent > 0 {
		hb.log.Debug("heartbeat sent", slog.Int("connections", sent))
	}
}
