package test

import (
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
)

// Guard fails the test if it runs longer than Timeout, and checks that no
// goroutine outlives it.
func Guard(t *testing.T) func() {
	done := make(chan struct{})
	timer := time.NewTimer(Timeout)

	go func() {
		defer timer.Stop()

		select {
		case <-timer.C:
			DumpGoroutines()
			panic("test timeout")

		case <-done:
		}
	}()

	checkLeaks := leaktest.CheckTimeout(t, Timeout)

	return func() {
		close(done)
		checkLeaks()
	}
}
