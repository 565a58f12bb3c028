package registry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

const DefaultTelemetryInterval = 5 * time.Second

// Source yields floats in [0, 1).
type Source interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// JitterTelemetry simulates one sensor update for every bin: fill level
// rises by up to 5 points capped at 100, battery drops by up to 2 points
// floored at 0.
func (r *Registry) JitterTelemetry(src Source) {
	if src == nil {
		src = globalSource{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.bins {
		bin := &r.bins[i]
		bin.FillLevel = math.Min(100, bin.FillLevel+src.Float64()*5)
		bin.BatteryLevel = math.Max(0, bin.BatteryLevel-src.Float64()*2)
	}
}

// RunTelemetry applies JitterTelemetry on every tick until ctx ends.
func (r *Registry) RunTelemetry(ctx context.Context, interval time.Duration, src Source, onTick func()) error {
	if interval <= 0 {
		interval = DefaultTelemetryInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.JitterTelemetry(src)
			if onTick != nil {
				onTick()
			}
		}
	}
}
