package database

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRowLocker(t *testing.T) {
	locker := RowLocker{}

	assert.Equal(t, " FOR UPDATE", locker.Clause())

	release := locker.Acquire("a", "b")
	assert.NotNil(t, release)
	release()
}

func TestSerialLocker_Clause(t *testing.T) {
	locker := NewSerialLocker()
	assert.Equal(t, "", locker.Clause())
}

func TestSerialLocker_SerializesSameAccount(t *testing.T) {
	locker := NewSerialLocker()

	var inCritical int
	var maxInCritical int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locker.Acquire("account1")
			defer release()

			mu.Lock()
			inCritical++
			if inCritical > maxInCritical {
				maxInCritical = inCritical
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inCritical--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInCritical)
}

func TestSerialLocker_OppositeOrderNoDeadlock(t *testing.T) {
	locker := NewSerialLocker()

	done := make(chan struct{})
	go func() {
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				release := locker.Acquire("accountA", "accountB")
				time.Sleep(100 * time.Microsecond)
				release()
			}()
			go func() {
				defer wg.Done()
				release := locker.Acquire("accountB", "accountA")
				time.Sleep(100 * time.Microsecond)
				release()
			}()
		}
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("opposite-direction acquisitions deadlocked")
	}
}

func TestSerialLocker_DuplicateIDs(t *testing.T) {
	locker := NewSerialLocker()

	// Same id passed twice must not self-deadlock.
	release := locker.Acquire("account1", "account1")
	release()

	release = locker.Acquire("account1")
	release()
}
