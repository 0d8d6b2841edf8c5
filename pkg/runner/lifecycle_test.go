package runner

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeDrainer struct {
	calls int
	delay time.Duration
}

func (d *fakeDrainer) Drain() error {
	d.calls++
	time.Sleep(d.delay)
	return nil
}

func TestRunnerDrainsOnStop(t *testing.T) {
	t.Parallel()

	d := &fakeDrainer{}
	var started, stopped bool
	lr := NewLifecycleRunner(d, Hooks{
		OnStart: func() { started = true },
		OnStop:  func() { stopped = true },
	}, time.Second)

	done := make(chan error, 1)
	go func() { done <- lr.Run(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for lr.State() != StateRunning && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if lr.State() != StateRunning {
		t.Fatal("runner never reached running state")
	}

	if err := lr.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !started || !stopped {
		t.Fatalf("hooks: started=%v stopped=%v", started, stopped)
	}
	if d.calls != 1 {
		t.Fatalf("drain calls = %d", d.calls)
	}
	if lr.State() != StateStopped {
		t.Fatalf("state = %v", lr.State())
	}
}

func TestRunnerStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	lr := NewLifecycleRunner(nil, Hooks{}, time.Second)
	done := make(chan error, 1)
	go func() { done <- lr.Run(ctx) }()
	for lr.State() != StateRunning {
		time.Sleep(time.Millisecond)
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop on cancel")
	}
}

func TestRunnerReportsDrainTimeout(t *testing.T) {
	t.Parallel()

	d := &fakeDrainer{delay: 200 * time.Millisecond}
	lr := NewLifecycleRunner(d, Hooks{}, 10*time.Millisecond)
	go func() { _ = lr.Run(context.Background()) }()
	for lr.State() != StateRunning {
		time.Sleep(time.Millisecond)
	}
	if err := lr.Stop(); err == nil || err.Error() != "drain timeout" {
		t.Fatalf("Stop = %v, want drain timeout", err)
	}
}

func TestRunnerRejectsDoubleRun(t *testing.T) {
	t.Parallel()

	lr := NewLifecycleRunner(nil, Hooks{}, time.Second)
	go func() { _ = lr.Run(context.Background()) }()
	for lr.State() != StateRunning {
		time.Sleep(time.Millisecond)
	}
	defer lr.Stop()
	if err := lr.Run(context.Background()); !errors.Is(err, errInvalidTransition) {
		t.Fatalf("second Run = %v", err)
	}
}
