package assetpipe

import (
	"fmt"
	"reflect"
	"sync"

	evbus "github.com/asaskevich/EventBus"

	"github.com/gogpu/assetpipe/pressure"
)

// TrimLevel is a memory-pressure severity delivered by the host.
type TrimLevel = pressure.Level

// Trimmable is implemented by components that release memory on request.
type Trimmable = pressure.Trimmable

// Trim levels, mildest first within each family.
const (
	TrimRunningModerate = pressure.RunningModerate
	TrimRunningLow      = pressure.RunningLow
	TrimCriticalLow     = pressure.CriticalLow
	TrimUIHidden        = pressure.UIHidden
	TrimBackground      = pressure.Background
	TrimModerate        = pressure.Moderate
	TrimComplete        = pressure.Complete
)

const (
	topicTrim      = "memory:trim"
	topicLowMemory = "memory:low"
)

// MemoryCoordinator forwards host memory signals to registered components.
//
// Each component is subscribed at most once no matter how often it is
// registered. Components that cannot receive memory signals are reported
// through the package logger and otherwise ignored.
type MemoryCoordinator struct {
	bus evbus.Bus

	mu         sync.Mutex
	registered map[any]struct{}
}

// NewMemoryCoordinator creates a coordinator with no components.
func NewMemoryCoordinator() *MemoryCoordinator {
	return &MemoryCoordinator{
		bus:        evbus.New(),
		registered: make(map[any]struct{}),
	}
}

// Register subscribes component to memory signals. It reports whether the
// component is subscribed after the call. Components are identified by
// pointer, so only pointer components are accepted.
func (m *MemoryCoordinator) Register(component any) bool {
	t, ok := component.(Trimmable)
	if !ok {
		Logger().Warn("assetpipe: component does not implement Trimmable, memory pressure will not shrink it",
			"component", fmt.Sprintf("%T", component))
		return false
	}
	if reflect.TypeOf(component).Kind() != reflect.Pointer {
		Logger().Warn("assetpipe: component is not a pointer, register a pointer",
			"component", fmt.Sprintf("%T", component))
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, dup := m.registered[component]; dup {
		return true
	}
	if err := m.bus.Subscribe(topicTrim, t.OnTrim); err != nil {
		Logger().Warn("assetpipe: subscribe trim", "err", err)
		return false
	}
	if err := m.bus.Subscribe(topicLowMemory, t.OnLowMemory); err != nil {
		_ = m.bus.Unsubscribe(topicTrim, t.OnTrim)
		Logger().Warn("assetpipe: subscribe low memory", "err", err)
		return false
	}
	m.registered[component] = struct{}{}
	return true
}

// Registered returns the number of subscribed components.
func (m *MemoryCoordinator) Registered() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.registered)
}

// OnTrim delivers level to every registered component. It implements
// Trimmable, so coordinators can be chained or driven by a pressure.Watcher.
func (m *MemoryCoordinator) OnTrim(level TrimLevel) {
	Logger().Debug("assetpipe: trim", "level", level)
	m.bus.Publish(topicTrim, level)
}

// OnLowMemory asks every registered component to release what it can.
func (m *MemoryCoordinator) OnLowMemory() {
	Logger().Debug("assetpipe: low memory")
	m.bus.Publish(topicLowMemory)
}
