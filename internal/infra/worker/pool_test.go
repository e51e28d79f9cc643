//go:build !integration

package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_RunsSubmittedTasks(t *testing.T) {
	p := NewPool(2, nopLogger())
	p.Start(context.Background())

	var n atomic.Int32
	done := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		if err := p.Submit(func(ctx context.Context) error {
			n.Add(1)
			done <- struct{}{}
			return nil
		}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("task did not run")
		}
	}
	p.Stop()
	if n.Load() != 2 {
		t.Fatalf("expected 2 runs, got %d", n.Load())
	}
}

func TestPool_SubmitWhenFullOrStopped(t *testing.T) {
	p := NewPool(1, nopLogger())
	// Not started: the single buffer slot fills up.
	block := func(ctx context.Context) error { return nil }
	if err := p.Submit(block); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if err := p.Submit(block); !errors.Is(err, ErrPoolFull) {
		t.Fatalf("expected ErrPoolFull, got %v", err)
	}
	if p.Idle() != 0 {
		t.Fatalf("expected no idle capacity, got %d", p.Idle())
	}
	p.Stop()
	if err := p.Submit(block); !errors.Is(err, ErrPoolStopped) {
		t.Fatalf("expected ErrPoolStopped, got %v", err)
	}
	if err := p.Submit(nil); err == nil {
		t.Fatal("nil task must be rejected")
	}
}
