package notify

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeTimer struct {
	d       time.Duration
	fire    func()
	stopped bool
}

func (f *fakeTimer) Stop() bool { f.stopped = true; return true }

func newTestNotifier() (*Notifier, *[]*fakeTimer) {
	n := New(zap.NewNop().Sugar())
	timers := &[]*fakeTimer{}
	n.afterFunc = func(d time.Duration, f func()) stopper {
		t := &fakeTimer{d: d, fire: f}
		*timers = append(*timers, t)
		return t
	}
	return n, timers
}

func TestShow_DefaultTimeoutsAndClamp(t *testing.T) {
	n, timers := newTestNotifier()

	n.Success("saved")
	n.Error("failed")
	n.Show(KindSuccess, "quick", time.Second)
	n.Show(KindError, "slow", time.Minute)

	want := []time.Duration{3 * time.Second, 5 * time.Second, MinTimeout, MaxTimeout}
	for i, w := range want {
		if got := (*timers)[i].d; got != w {
			t.Errorf("timer %d = %v, want %v", i, got, w)
		}
	}
}

func TestShow_NewBannerCancelsPendingDismissal(t *testing.T) {
	n, timers := newTestNotifier()

	n.Success("first")
	n.Error("second")

	if !(*timers)[0].stopped {
		t.Fatalf("first dismissal not cancelled")
	}
	// A late fire from the first timer must not clear the second banner.
	(*timers)[0].fire()
	b, ok := n.Current()
	if !ok || b.Text != "second" || b.Kind != KindError {
		t.Fatalf("current = %+v, %v", b, ok)
	}

	(*timers)[1].fire()
	if _, ok := n.Current(); ok {
		t.Fatalf("banner should be dismissed")
	}
}

func TestDismiss(t *testing.T) {
	n, timers := newTestNotifier()
	n.Success("x")
	n.Dismiss()
	if _, ok := n.Current(); ok {
		t.Fatalf("banner still shown")
	}
	if !(*timers)[0].stopped {
		t.Fatalf("timer not stopped")
	}
}

func TestConfigureClamps(t *testing.T) {
	n, timers := newTestNotifier()
	n.Configure(10*time.Second, time.Millisecond)
	n.Success("a")
	n.Error("b")
	if (*timers)[0].d != MaxTimeout || (*timers)[1].d != MinTimeout {
		t.Fatalf("got %v, %v", (*timers)[0].d, (*timers)[1].d)
	}
}

func TestDefaultIsSingleton(t *testing.T) {
	if Default() != Default() {
		t.Fatalf("Default returned different instances")
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Show(KindError, "boom", 0)
	b, ok := r.Last()
	if !ok || b.Text != "boom" {
		t.Fatalf("last = %+v", b)
	}
}
