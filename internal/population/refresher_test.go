package population

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeSource struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (f *fakeSource) ChatIDs(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.ids), f.err
}

func (f *fakeSource) set(ids ...string) {
	f.mu.Lock()
	f.ids = ids
	f.mu.Unlock()
}

type fakeSink struct {
	updates chan []string
}

func (f *fakeSink) UpdateChatIDs(ids []string) { f.updates <- ids }

func next(t *testing.T, sink *fakeSink) []string {
	t.Helper()
	select {
	case ids := <-sink.updates:
		return ids
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for population update")
		return nil
	}
}

func TestStartLoadsImmediately(t *testing.T) {
	src := &fakeSource{ids: []string{"a", "b"}}
	sink := &fakeSink{updates: make(chan []string, 10)}
	r := NewRefresher(src, sink, 0, zap.NewNop())
	r.Start(context.Background())
	defer r.Stop()

	if got := next(t, sink); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("initial population = %v, want [a b]", got)
	}
}

func TestTriggerRefreshes(t *testing.T) {
	src := &fakeSource{}
	sink := &fakeSink{updates: make(chan []string, 10)}
	r := NewRefresher(src, sink, 0, zap.NewNop())
	r.Start(context.Background())
	defer r.Stop()
	if got := next(t, sink); len(got) != 0 {
		t.Fatalf("initial population = %v, want empty", got)
	}

	src.set("x", "y", "z")
	r.Trigger()
	if got := next(t, sink); len(got) != 3 {
		t.Errorf("after trigger = %v, want 3 ids", got)
	}
}

func TestTickerRefreshes(t *testing.T) {
	src := &fakeSource{ids: []string{"a"}}
	sink := &fakeSink{updates: make(chan []string, 10)}
	r := NewRefresher(src, sink, 10*time.Millisecond, zap.NewNop())
	r.Start(context.Background())
	defer r.Stop()

	next(t, sink)
	src.set("a", "b")
	for {
		if got := next(t, sink); len(got) == 2 {
			return
		}
	}
}

func TestSourceErrorKeepsPopulation(t *testing.T) {
	src := &fakeSource{err: errors.New("db closed")}
	sink := &fakeSink{updates: make(chan []string, 10)}
	r := NewRefresher(src, sink, 0, zap.NewNop())

	if err := r.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh() expected error")
	}
	select {
	case ids := <-sink.updates:
		t.Errorf("sink updated with %v after error", ids)
	default:
	}
}
