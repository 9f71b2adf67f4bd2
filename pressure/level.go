// Package pressure defines the graded memory-pressure signal shared by the
// pipeline's caches and buffer pools.
//
// Levels mirror the trim levels a mobile host delivers to its components.
// Numeric values are ordered by severity within the "running" and
// "background" families, so they can be logged and compared directly.
package pressure

import "fmt"

// Level is a memory-pressure severity delivered by the host.
type Level int

const (
	// RunningModerate: the process is in the foreground and the device is
	// starting to run low. Components keep everything.
	RunningModerate Level = 5

	// RunningLow: foreground, device is running low.
	RunningLow Level = 10

	// CriticalLow: foreground, device is about to start killing processes.
	CriticalLow Level = 15

	// UIHidden: the UI went to the background. Nothing to release here.
	UIHidden Level = 20

	// Background: the process is on the LRU list of cached processes.
	Background Level = 40

	// Moderate: the process is in the middle of the cached-process list.
	Moderate Level = 60

	// Complete: the process is next to be killed.
	Complete Level = 80
)

// Trimmable is implemented by components that can give memory back to the
// host when asked.
type Trimmable interface {
	// OnTrim releases memory according to level.
	OnTrim(level Level)

	// OnLowMemory releases everything that can be released.
	OnLowMemory()
}

// RetainFraction reports which share of its capacity a component may keep at
// this level: 1 means no action, 0 means release everything.
func (l Level) RetainFraction() float64 {
	switch l {
	case Background, Complete, CriticalLow:
		return 0
	case Moderate:
		return 0.75
	case RunningLow:
		return 0.5
	default:
		return 1
	}
}

// Actionable reports whether components are expected to release anything.
func (l Level) Actionable() bool {
	return l.RetainFraction() < 1
}

// String returns the level name.
func (l Level) String() string {
	switch l {
	case RunningModerate:
		return "runningModerate"
	case RunningLow:
		return "runningLow"
	case CriticalLow:
		return "criticalLow"
	case UIHidden:
		return "uiHidden"
	case Background:
		return "background"
	case Moderate:
		return "moderate"
	case Complete:
		return "complete"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// ParseLevel converts a level name as returned by String back into a Level.
func ParseLevel(s string) (Level, error) {
	for _, l := range []Level{RunningModerate, RunningLow, CriticalLow, UIHidden, Background, Moderate, Complete} {
		if l.String() == s {
			return l, nil
		}
	}
	return 0, fmt.Errorf("pressure: unknown trim level %q", s)
}
