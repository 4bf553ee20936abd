package polymarket

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestPacerEnforcesMinimumSpacing(t *testing.T) {
	p := NewPacer(20 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := p.Wait(ctx); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("three requests took %v, want >= 40ms", elapsed)
	}
}

func TestPacerConcurrentCallersQueue(t *testing.T) {
	p := NewPacer(10 * time.Millisecond)
	ctx := context.Background()

	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Wait(ctx); err != nil {
				t.Errorf("Wait: %v", err)
			}
		}()
	}
	wg.Wait()

	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("four concurrent requests took %v, want >= 30ms", elapsed)
	}
}

func TestPacerHonorsCancellation(t *testing.T) {
	p := NewPacer(time.Minute)
	ctx := context.Background()

	// First call claims the immediate slot.
	if err := p.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()

	err := p.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("got %v, want context.DeadlineExceeded", err)
	}
}

func TestPacerDefaultsInterval(t *testing.T) {
	p := NewPacer(0)
	if p.interval != defaultRequestInterval {
		t.Errorf("interval = %v, want %v", p.interval, defaultRequestInterval)
	}
}
