package shared

import (
	"fmt"
	"sync"

	"github.com/vsinha/foodplan/pkg/domain/entities"
)

// KeyedLocks serializes work per key. Entries are reference counted and
// dropped once no caller holds or waits for them.
type KeyedLocks struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu      sync.Mutex
	holders int
}

// NewKeyedLocks creates an empty lock table
func NewKeyedLocks() *KeyedLocks {
	return &KeyedLocks{locks: make(map[string]*keyedLock)}
}

// Lock blocks until key is free and returns the matching unlock function
func (k *KeyedLocks) Lock(key string) func() {
	k.mu.Lock()
	lock, exists := k.locks[key]
	if !exists {
		lock = &keyedLock{}
		k.locks[key] = lock
	}
	lock.holders++
	k.mu.Unlock()

	lock.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			lock.mu.Unlock()
			k.mu.Lock()
			lock.holders--
			if lock.holders == 0 {
				delete(k.locks, key)
			}
			k.mu.Unlock()
		})
	}
}

// Size returns the number of keys currently held or awaited
func (k *KeyedLocks) Size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

// ParentKey is the lock key for structural edits under one parent item
func ParentKey(parentID entities.ItemID) string {
	return fmt.Sprintf("parent|%s", parentID)
}

// StockKey is the lock key for one stock position
func StockKey(itemID entities.ItemID, location string) string {
	return fmt.Sprintf("stock|%s|%s", itemID, location)
}
