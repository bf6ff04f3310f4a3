package core

import (
	"context"
	"testing"
	"time"
)

func TestRequestLockBasic(t *testing.T) {
	lock := NewRequestLock()
	ctx := context.Background()

	if !lock.LockWithContext(ctx) {
		t.Fatal("first acquire failed")
	}

	timed, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	if lock.LockWithContext(timed) {
		t.Fatal("second acquire should block until the context expires")
	}

	lock.Unlock()
	if !lock.LockWithContext(ctx) {
		t.Fatal("acquire after unlock failed")
	}
}

func TestRequestLockDoubleUnlock(t *testing.T) {
	lock := NewRequestLock()
	lock.Unlock()
	lock.Unlock() // must not panic

	if !lock.LockWithContext(context.Background()) {
		t.Fatal("acquire after spurious unlocks failed")
	}
}

func TestGetRequestLockSameKey(t *testing.T) {
	a := GetRequestLock("nick1")
	b := GetRequestLock("nick1")
	if a != b {
		t.Error("same key returned different locks")
	}
	if c := GetRequestLock("nick2"); c == a {
		t.Error("different keys share a lock")
	}
}
