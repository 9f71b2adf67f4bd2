package pressure

import (
	"context"
	"sync"
	"time"

	"github.com/pbnjay/memory"
)

// DefaultPollInterval is how often a Watcher samples host memory when no
// interval is given.
const DefaultPollInterval = 5 * time.Second

// Free-memory ratios at which a Watcher escalates.
const (
	criticalFreeRatio = 0.05
	lowFreeRatio      = 0.10
	moderateFreeRatio = 0.20
)

// Reader returns the host's free and total memory in bytes.
type Reader func() (free, total uint64)

// SystemReader samples the host through github.com/pbnjay/memory.
func SystemReader() (free, total uint64) {
	return memory.FreeMemory(), memory.TotalMemory()
}

// LevelForFreeRatio maps the free/total memory ratio to a trim level.
func LevelForFreeRatio(ratio float64) Level {
	switch {
	case ratio < criticalFreeRatio:
		return CriticalLow
	case ratio < lowFreeRatio:
		return RunningLow
	case ratio < moderateFreeRatio:
		return Moderate
	default:
		return RunningModerate
	}
}

// Watcher turns host memory readings into trim signals for hosts that have
// no native low-memory callback (servers, desktop tools).
//
// A signal is dispatched only when the observed level changes to an
// actionable one, so a steady low-memory condition does not flush caches on
// every tick. CriticalLow additionally triggers OnLowMemory.
type Watcher struct {
	target   Trimmable
	read     Reader
	interval time.Duration

	mu   sync.Mutex
	last Level
}

// NewWatcher creates a watcher that forwards levels to target.
// A nil read uses SystemReader; a non-positive interval uses DefaultPollInterval.
func NewWatcher(target Trimmable, read Reader, interval time.Duration) *Watcher {
	if read == nil {
		read = SystemReader
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Watcher{
		target:   target,
		read:     read,
		interval: interval,
		last:     RunningModerate,
	}
}

// Check samples memory once, dispatches if needed, and returns the level.
func (w *Watcher) Check() Level {
	free, total := w.read()
	if total == 0 {
		return RunningModerate
	}
	level := LevelForFreeRatio(float64(free) / float64(total))

	w.mu.Lock()
	changed := level != w.last
	w.last = level
	w.mu.Unlock()

	if !changed || !level.Actionable() {
		return level
	}

	w.target.OnTrim(level)
	if level == CriticalLow {
		w.target.OnLowMemory()
	}
	return level
}

// Run polls until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.Check()
		}
	}
}
