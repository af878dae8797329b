package services

import (
	"sync"
	"testing"
	"time"
)

func TestUserLocksSerializeSameUser(t *testing.T) {
	var locks userLocks
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock("alice")
			defer unlock()
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("expected 50 serialized increments, got %d", counter)
	}
	if n := locks.size(); n != 0 {
		t.Fatalf("expected no locks left, got %d", n)
	}
}

func TestUserLocksIndependentUsers(t *testing.T) {
	var locks userLocks
	unlockA := locks.lock("alice")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := locks.lock("bob")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("another user's lock must not block")
	}
	if n := locks.size(); n != 1 {
		t.Fatalf("expected only alice's lock, got %d", n)
	}
}
