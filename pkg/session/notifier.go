package session

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/voxkey/voxkey/pkg/adapters/recognizer"
	"github.com/voxkey/voxkey/pkg/adapters/window"
	"github.com/voxkey/voxkey/pkg/metrics"
	"github.com/voxkey/voxkey/pkg/priority"
	"github.com/voxkey/voxkey/pkg/recovery"
)

// EventKind tags events delivered to the consumer.
type EventKind int

const (
	EventResult EventKind = iota
	EventError
	EventLevel
	EventModelProgress
	EventDeviceChange
	EventForegroundApp
	EventSessionStarted
	EventSessionStopped
)

// String returns the string representation of an EventKind
func (k EventKind) String() string {
	switch k {
	case EventResult:
		return "result"
	case EventError:
		return "error"
	case EventLevel:
		return "level"
	case EventModelProgress:
		return "model_progress"
	case EventDeviceChange:
		return "device_change"
	case EventForegroundApp:
		return "foreground_app"
	case EventSessionStarted:
		return "session_started"
	case EventSessionStopped:
		return "session_stopped"
	default:
		return "unknown"
	}
}

// Event is one item on the delivery queue. Only the fields relevant to
// Kind are populated.
type Event struct {
	Kind      EventKind
	SessionID string
	Time      time.Time

	Result       *recognizer.Result
	Err          *recovery.ErrorDetails
	Level        float64
	Peak         float64
	Progress     float64
	App          string
	DeviceChange *window.DeviceChange
	Message      string
}

// Notifier is the one-way bridge from the session worker to the consumer.
// Control events outrank results; both levels are bounded and pushes never
// block. When the consumer falls behind, items are dropped and counted.
type Notifier struct {
	queue   *priority.PriorityQueue
	obs     metrics.Observer
	logger  *slog.Logger
	dropped atomic.Int64
}

func NewNotifier(eventCap, resultCap int, obs metrics.Observer, logger *slog.Logger) *Notifier {
	if eventCap <= 0 {
		eventCap = 64
	}
	if resultCap <= 0 {
		resultCap = 256
	}
	if obs == nil {
		obs = metrics.NoopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		queue:  priority.New(eventCap, resultCap, 3),
		obs:    obs,
		logger: logger.With("component", "notifier"),
	}
}

// PublishEvent enqueues a control event at high priority.
func (n *Notifier) PublishEvent(ev Event) bool {
	ev.Time = time.Now()
	if !n.queue.TryPushHigh(ev) {
		n.drop(ev)
		return false
	}
	return true
}

// PublishResult enqueues a transcription or level event at low priority.
func (n *Notifier) PublishResult(ev Event) bool {
	ev.Time = time.Now()
	if !n.queue.TryPushLow(ev) {
		n.drop(ev)
		return false
	}
	return true
}

// Poll returns the next pending event without blocking.
func (n *Notifier) Poll() (Event, bool) {
	item, ok := n.queue.TryPop()
	if !ok {
		return Event{}, false
	}
	return item.(Event), true
}

// Next blocks until an event is available.
func (n *Notifier) Next() Event {
	item, _ := n.queue.Pop()
	return item.(Event)
}

// Dropped reports how many events were discarded because the consumer fell
// behind.
func (n *Notifier) Dropped() int64 { return n.dropped.Load() }

func (n *Notifier) drop(ev Event) {
	n.dropped.Add(1)
	n.obs.RecordEvent(metrics.MetricsEvent{
		Name: metrics.EventFrameDropped,
		Time: time.Now(),
		Tags: map[string]string{"kind": ev.Kind.String()},
	})
	n.logger.Debug("event dropped, consumer behind", "kind", ev.Kind.String())
}
