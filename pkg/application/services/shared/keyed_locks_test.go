package shared

import (
	"sync"
	"testing"
)

func TestKeyedLocks_SerializesSameKey(t *testing.T) {
	locks := NewKeyedLocks()
	counter := 0
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("parent|FG1")
			defer unlock()
			current := counter
			current++
			counter = current
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("Expected 50 serialized increments, got %d", counter)
	}
	if locks.Size() != 0 {
		t.Errorf("Expected lock table to be empty after release, got %d", locks.Size())
	}
}

func TestKeyedLocks_IndependentKeys(t *testing.T) {
	locks := NewKeyedLocks()

	unlockA := locks.Lock("a")
	done := make(chan struct{})
	go func() {
		unlockB := locks.Lock("b")
		unlockB()
		close(done)
	}()
	<-done

	if locks.Size() != 1 {
		t.Errorf("Expected only key a to remain, got %d keys", locks.Size())
	}
	unlockA()
	unlockA()
	if locks.Size() != 0 {
		t.Errorf("Expected repeated unlock to be a no-op, got %d keys", locks.Size())
	}
}

func TestKeys(t *testing.T) {
	if ParentKey("FG1") == StockKey("FG1", "") {
		t.Error("Expected parent and stock keys to never collide")
	}
	if StockKey("RM1", "A") == StockKey("RM1", "B") {
		t.Error("Expected distinct locations to give distinct keys")
	}
}
