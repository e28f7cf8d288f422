package modellock

import (
	"sync"
	"testing"
	"time"
)

func TestLockSerializesPerModel(t *testing.T) {
	r := NewRegistry()

	var mu sync.Mutex
	running := 0
	maxRunning := 0

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Lock("gemini")
			defer r.Unlock("gemini")

			mu.Lock()
			running++
			if running > maxRunning {
				maxRunning = running
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxRunning != 1 {
		t.Errorf("expected at most 1 holder of the model lock, observed %d", maxRunning)
	}
}

func TestLocksAreIndependentAcrossModels(t *testing.T) {
	r := NewRegistry()

	r.Lock("gemini")
	defer r.Unlock("gemini")

	done := make(chan struct{})
	go func() {
		r.Lock("claude")
		r.Unlock("claude")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different model must not block")
	}
}
