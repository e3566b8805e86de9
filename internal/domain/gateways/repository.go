package gateways

import (
	"context"
	"sync/atomic"

	"github.com/patrik-rangel/melcloud-data-logger/internal/domain/entities"
)

// SnapshotSink persists snapshots. Upsert must be idempotent on
// (snapshot time, device id) with last-write-wins, and must be a successful
// no-op while the sink is disabled.
type SnapshotSink interface {
	Name() string
	Enabled() bool
	Upsert(ctx context.Context, snapshot entities.DeviceSnapshot) error
}

// Switch is embedded by sinks to carry their enable flag. The flag is read on
// every call, so it can be flipped while the poller runs.
type Switch struct {
	on atomic.Bool
}

func (s *Switch) Enabled() bool {
	return s.on.Load()
}

func (s *Switch) SetEnabled(on bool) {
	s.on.Store(on)
}
