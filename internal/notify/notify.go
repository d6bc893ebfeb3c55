// internal/notify/notify.go
//
// Operator notifications.
//
// Context
// -------
// Every controller reports its outcome through a Sink: a success or error
// banner that the admin UI shows and removes after a few seconds.  The
// process-wide Notifier is created lazily by Default() and lives for the
// life of the process; tests hand controllers their own Sink instead.
//
// Workflow
// --------
//  1. Show stores the banner, logs it, and bumps the notification counter.
//  2. A dismissal timer is armed for the banner's timeout.
//  3. A newer Show cancels the pending dismissal before arming its own, so
//     an old timer can never clear a newer banner.
//
// Notes
// -----
//   - Timeouts default to 3 s (success) and 5 s (error) and are clamped to
//     the 3 to 5 s window.
//   - Oxford commas, two spaces after periods.
package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/storefront/internal/metrics"
)

// Kind is the banner flavour.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Timeout bounds.
const (
	MinTimeout            = 3 * time.Second
	MaxTimeout            = 5 * time.Second
	DefaultSuccessTimeout = 3 * time.Second
	DefaultErrorTimeout   = 5 * time.Second
)

// Banner is the notification currently on screen.
type Banner struct {
	Seq     uint64        `json:"seq"`
	Kind    Kind          `json:"kind"`
	Text    string        `json:"text"`
	ShownAt time.Time     `json:"shown_at"`
	Timeout time.Duration `json:"-"`
}

// Sink is what controllers depend on.
type Sink interface {
	Show(kind Kind, text string, timeout time.Duration)
}

type stopper interface{ Stop() bool }

// Notifier is the standard Sink.  Safe for concurrent use.
type Notifier struct {
	log *zap.SugaredLogger

	mu             sync.Mutex
	current        *Banner
	timer          stopper
	seq            uint64
	successTimeout time.Duration
	errorTimeout   time.Duration

	afterFunc func(time.Duration, func()) stopper
	now       func() time.Time
}

// New returns a Notifier that logs through log (zap.S() when nil).
func New(log *zap.SugaredLogger) *Notifier {
	if log == nil {
		log = zap.S()
	}
	return &Notifier{
		log:            log,
		successTimeout: DefaultSuccessTimeout,
		errorTimeout:   DefaultErrorTimeout,
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
		now: time.Now,
	}
}

var (
	defaultOnce sync.Once
	defaultN    *Notifier
)

// Default returns the process-wide Notifier, creating it on first use.
func Default() *Notifier {
	defaultOnce.Do(func() { defaultN = New(nil) })
	return defaultN
}

// Configure sets the per-kind default timeouts.  Values are clamped.
func (n *Notifier) Configure(success, errTimeout time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if success > 0 {
		n.successTimeout = clamp(success)
	}
	if errTimeout > 0 {
		n.errorTimeout = clamp(errTimeout)
	}
}

// Show replaces the current banner.  A zero timeout selects the default
// for kind.
func (n *Notifier) Show(kind Kind, text string, timeout time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if timeout <= 0 {
		timeout = n.successTimeout
		if kind == KindError {
			timeout = n.errorTimeout
		}
	}
	timeout = clamp(timeout)

	if n.timer != nil {
		n.timer.Stop()
	}
	n.seq++
	seq := n.seq
	n.current = &Banner{Seq: seq, Kind: kind, Text: text, ShownAt: n.now(), Timeout: timeout}
	n.timer = n.afterFunc(timeout, func() { n.expire(seq) })

	metrics.NotificationsTotal.WithLabelValues(string(kind)).Inc()
	if kind == KindError {
		n.log.Warnw("notify", "kind", kind, "text", text)
	} else {
		n.log.Infow("notify", "kind", kind, "text", text)
	}
}

// Success shows a success banner with the default timeout.
func (n *Notifier) Success(text string) { n.Show(KindSuccess, text, 0) }

// Error shows an error banner with the default timeout.
func (n *Notifier) Error(text string) { n.Show(KindError, text, 0) }

// Current returns the banner on screen, if any.
func (n *Notifier) Current() (Banner, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return Banner{}, false
	}
	return *n.current, true
}

// Dismiss removes the banner now.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.current = nil
}

func (n *Notifier) expire(seq uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current != nil && n.current.Seq == seq {
		n.current = nil
		n.timer = nil
	}
}

func clamp(d time.Duration) time.Duration {
	switch {
	case d < MinTimeout:
		return MinTimeout
	case d > MaxTimeout:
		return MaxTimeout
	}
	return d
}

// Recorder is a Sink that keeps every banner.  Used by tests.
type Recorder struct {
	mu      sync.Mutex
	Banners []Banner
}

func (r *Recorder) Show(kind Kind, text string, timeout time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Banners = append(r.Banners, Banner{Seq: uint64(len(r.Banners) + 1), Kind: kind, Text: text, Timeout: timeout})
}

// Last returns the most recent banner.
func (r *Recorder) Last() (Banner, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Banners) == 0 {
		return Banner{}, false
	}
	return r.Banners[len(r.Banners)-1], true
}
