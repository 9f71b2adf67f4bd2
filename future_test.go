package assetpipe

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestFutureSettlesOnce(t *testing.T) {
	f := newFuture()

	var got []Result
	if !f.attach(func(r Result) { got = append(got, r) }) {
		t.Fatal("attach to an open future failed")
	}
	if !f.attach(nil) {
		t.Fatal("attach(nil) to an open future failed")
	}

	if _, ok := f.Result(); ok {
		t.Error("Result reported ready before settle")
	}

	waiters := f.settle(Result{ID: "a"})
	if len(waiters) != 1 {
		t.Fatalf("settle returned %d waiters, want 1", len(waiters))
	}
	invoke(waiters, Result{ID: "a"})

	if w := f.settle(Result{ID: "b"}); w != nil {
		t.Error("second settle should be ignored")
	}
	if f.attach(func(Result) {}) {
		t.Error("settled futures take no waiters")
	}

	r, ok := f.Result()
	if !ok || r.ID != "a" {
		t.Errorf("Result = %+v, %v; want id a, true", r, ok)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("callback saw %+v, want one result with id a", got)
	}

	select {
	case <-f.Done():
	default:
		t.Fatal("Done not closed")
	}
}

func TestFutureWait(t *testing.T) {
	f := newFuture()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := f.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait error = %v, want %v", err, context.DeadlineExceeded)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := f.Wait(context.Background())
			if err != nil {
				t.Errorf("Wait: %v", err)
				return
			}
			if r.Status != StatusNoData {
				t.Errorf("Status = %v, want no_data", r.Status)
			}
		}()
	}
	f.settle(Result{Status: StatusNoData})
	wg.Wait()
}

func TestInvokeSurvivesPanickingCallback(t *testing.T) {
	var second bool
	invoke([]Callback{
		func(Result) { panic("caller bug") },
		func(Result) { second = true },
	}, Result{})
	if !second {
		t.Error("callback after a panicking one was not run")
	}
}

func TestStatusString(t *testing.T) {
	for s, want := range map[Status]string{
		StatusOK:       "ok",
		StatusNoData:   "no_data",
		StatusFailed:   "failed",
		StatusRejected: "rejected",
		Status(99):     "unknown",
	} {
		if got := s.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}
