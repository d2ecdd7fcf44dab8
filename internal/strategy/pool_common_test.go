package strategy

import "testing"

func TestDirQueuePushPop(t *testing.T) {
	q := newDirQueue()
	q.push(queueDir{relPath: "a"})
	q.push(queueDir{relPath: "b"})

	got, ok := q.pop()
	if !ok || got.relPath != "b" {
		t.Fatalf("pop() = %+v, %v, want relPath=b, true", got, ok)
	}
	got, ok = q.pop()
	if !ok || got.relPath != "a" {
		t.Fatalf("pop() = %+v, %v, want relPath=a, true", got, ok)
	}
}

func TestDirQueueCloseWakesWaiters(t *testing.T) {
	q := newDirQueue()
	done := make(chan bool, 1)
	go func() {
		_, ok := q.pop()
		done <- ok
	}()
	q.closeAll()
	if ok := <-done; ok {
		t.Fatal("pop() after closeAll() on an empty queue should report ok=false")
	}
}

func TestDirQueuePushAfterWaiterBlocked(t *testing.T) {
	q := newDirQueue()
	result := make(chan queueDir, 1)
	go func() {
		d, ok := q.pop()
		if ok {
			result <- d
		}
	}()
	q.push(queueDir{relPath: "late"})
	if got := <-result; got.relPath != "late" {
		t.Fatalf("pop() = %+v, want relPath=late", got)
	}
}
