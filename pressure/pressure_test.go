package pressure

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLevel_RetainFraction(t *testing.T) {
	tests := []struct {
		level Level
		want  float64
	}{
		{Background, 0},
		{Complete, 0},
		{CriticalLow, 0},
		{Moderate, 0.75},
		{RunningLow, 0.5},
		{RunningModerate, 1},
		{UIHidden, 1},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			if got := tt.level.RetainFraction(); got != tt.want {
				t.Errorf("RetainFraction() = %v, want %v", got, tt.want)
			}
			if got := tt.level.Actionable(); got != (tt.want < 1) {
				t.Errorf("Actionable() = %v, want %v", got, tt.want < 1)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	for _, l := range []Level{RunningModerate, RunningLow, CriticalLow, UIHidden, Background, Moderate, Complete} {
		got, err := ParseLevel(l.String())
		if err != nil {
			t.Fatalf("ParseLevel(%q) error: %v", l.String(), err)
		}
		if got != l {
			t.Errorf("ParseLevel(%q) = %v, want %v", l.String(), got, l)
		}
	}

	if _, err := ParseLevel("nope"); err == nil {
		t.Error("ParseLevel(nope) should fail")
	}
	if s := Level(3).String(); s != "Level(3)" {
		t.Errorf("unknown level String() = %q", s)
	}
}

func TestLevelForFreeRatio(t *testing.T) {
	tests := []struct {
		ratio float64
		want  Level
	}{
		{0.01, CriticalLow},
		{0.07, RunningLow},
		{0.15, Moderate},
		{0.50, RunningModerate},
	}
	for _, tt := range tests {
		if got := LevelForFreeRatio(tt.ratio); got != tt.want {
			t.Errorf("LevelForFreeRatio(%v) = %v, want %v", tt.ratio, got, tt.want)
		}
	}
}

type recorder struct {
	mu     sync.Mutex
	levels []Level
	lows   int
}

func (r *recorder) OnTrim(level Level) {
	r.mu.Lock()
	r.levels = append(r.levels, level)
	r.mu.Unlock()
}

func (r *recorder) OnLowMemory() {
	r.mu.Lock()
	r.lows++
	r.mu.Unlock()
}

func TestWatcher_Check(t *testing.T) {
	rec := &recorder{}
	free := uint64(50)
	w := NewWatcher(rec, func() (uint64, uint64) { return free, 100 }, time.Second)

	if got := w.Check(); got != RunningModerate {
		t.Fatalf("Check() = %v, want runningModerate", got)
	}
	if len(rec.levels) != 0 {
		t.Fatalf("no-op level dispatched: %v", rec.levels)
	}

	free = 15
	w.Check()
	w.Check() // steady state must not re-dispatch
	free = 2
	w.Check()

	want := []Level{Moderate, CriticalLow}
	if len(rec.levels) != len(want) {
		t.Fatalf("dispatched %v, want %v", rec.levels, want)
	}
	for i := range want {
		if rec.levels[i] != want[i] {
			t.Errorf("levels[%d] = %v, want %v", i, rec.levels[i], want[i])
		}
	}
	if rec.lows != 1 {
		t.Errorf("OnLowMemory called %d times, want 1", rec.lows)
	}
}

func TestWatcher_ZeroTotal(t *testing.T) {
	rec := &recorder{}
	w := NewWatcher(rec, func() (uint64, uint64) { return 0, 0 }, 0)
	if got := w.Check(); got != RunningModerate {
		t.Errorf("Check() with zero total = %v, want runningModerate", got)
	}
	if w.interval != DefaultPollInterval {
		t.Errorf("interval = %v, want %v", w.interval, DefaultPollInterval)
	}
}

func TestWatcher_RunStopsOnCancel(t *testing.T) {
	rec := &recorder{}
	w := NewWatcher(rec, func() (uint64, uint64) { return 1, 100 }, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := w.Run(ctx); err == nil {
		t.Fatal("Run should return the context error")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.levels) != 1 || rec.levels[0] != CriticalLow {
		t.Errorf("levels = %v, want [criticalLow]", rec.levels)
	}
}
