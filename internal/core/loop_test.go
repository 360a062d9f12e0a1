package core

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestLoopRunsPostedCallbacksInOrder(t *testing.T) {
	l := NewLoop(SystemClock)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	var got []int
	for i := 0; i < 5; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}
	var snapshot []int
	if !l.Call(func() { snapshot = append(snapshot, got...) }) {
		t.Fatalf("Call failed on a running loop")
	}
	for i, v := range snapshot {
		if v != i {
			t.Fatalf("order = %v", snapshot)
		}
	}
	if len(snapshot) != 5 {
		t.Fatalf("ran %d callbacks", len(snapshot))
	}
}

func TestLoopTimerStoppedAfterFiringDoesNotRun(t *testing.T) {
	l := NewLoop(SystemClock)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	var fired atomic.Int32
	var timer Timer
	l.Call(func() {
		timer = l.Clock().AfterFunc(time.Millisecond, func() { fired.Add(1) })
		// hold the loop so the timer's callback queues behind us
		time.Sleep(20 * time.Millisecond)
		timer.Stop()
	})
	time.Sleep(20 * time.Millisecond)
	l.Call(func() {})
	if fired.Load() != 0 {
		t.Fatalf("stopped timer fired")
	}
}

func TestLoopRejectsPostsAfterStop(t *testing.T) {
	l := NewLoop(nil)
	done := make(chan struct{})
	go func() {
		l.Run(context.Background())
		close(done)
	}()
	l.Stop()
	<-done
	if l.Post(func() {}) {
		t.Fatalf("Post accepted after Stop")
	}
	if l.Call(func() {}) {
		t.Fatalf("Call succeeded after Stop")
	}
}
