package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"hostelcare/internal/domain/complaint"
	"hostelcare/internal/domain/user"
	"hostelcare/internal/pkg/apperr"
	"hostelcare/internal/realtime"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Directory lists accounts for the "all wardens" selector.
type Directory interface {
	ListByRole(ctx context.Context, role user.Role) ([]user.User, error)
}

// Deliverer pushes a stored notification through an outside channel.
// Delivery is best-effort; errors are logged by the dispatcher.
type Deliverer interface {
	Name() string
	Deliver(ctx context.Context, n *Notification) error
}

type DispatcherConfig struct {
	Workers   int
	QueueSize int
}

// Dispatcher turns complaint events into notifications. Dispatch never
// blocks the caller; every recipient is attempted in isolation.
type Dispatcher struct {
	repo       Repository
	directory  Directory
	publisher  *realtime.Publisher
	deliverers []Deliverer
	logger     *slog.Logger
	cfg        DispatcherConfig

	queue     chan *complaint.Event
	mu        sync.RWMutex
	closed    bool
	startOnce sync.Once
	wg        sync.WaitGroup
	now       func() time.Time
}

func NewDispatcher(
	repo Repository,
	directory Directory,
	publisher *realtime.Publisher,
	logger *slog.Logger,
	cfg DispatcherConfig,
	deliverers ...Deliverer,
) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		repo:       repo,
		directory:  directory,
		publisher:  publisher,
		deliverers: deliverers,
		logger:     logger,
		cfg:        cfg,
		queue:      make(chan *complaint.Event, cfg.QueueSize),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Start launches the workers. Calling it more than once is a no-op.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		for i := 0; i < d.cfg.Workers; i++ {
			d.wg.Add(1)
			go d.worker(i)
		}
		d.logger.Info("notification dispatcher started", "workers", d.cfg.Workers, "queue_size", d.cfg.QueueSize)
	})
}

// Close stops accepting events and waits until queued ones are handled.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.Start() // drain even if never started
	d.wg.Wait()
	d.logger.Info("notification dispatcher stopped")
}

// Dispatch enqueues ev. A full or closed queue drops the event with a log line.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *complaint.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logFailure(ctx, ev, "", "", "enqueue", fmt.Errorf("dispatcher closed"))
		return
	}

	select {
	case d.queue <- ev:
	default:
		d.logFailure(ctx, ev, "", "", "enqueue", fmt.Errorf("queue full"))
	}
}

func (d *Dispatcher) worker(n int) {
	defer d.wg.Done()
	for ev := range d.queue {
		d.Handle(context.Background(), ev)
	}
	d.logger.Debug("notification worker exited", "worker", n)
}

// Handle fans ev out synchronously and returns the notifications stored.
func (d *Dispatcher) Handle(ctx context.Context, ev *complaint.Event) []*Notification {
	targets := Rules(ev)
	if len(targets) == 0 {
		return nil
	}

	var wardenIDs []string
	if needsWardens(targets) {
		wardens, err := d.directory.ListByRole(ctx, user.RoleWarden)
		if err != nil {
			// other selectors are still attempted
			d.logFailure(ctx, ev, "", string(SelectWardens), "resolve", err)
		}
		for _, w := range wardens {
			wardenIDs = append(wardenIDs, w.ID)
		}
	}

	recipients := Expand(ev, targets, wardenIDs)
	stored := make([]*Notification, 0, len(recipients))
	for _, r := range recipients {
		if n := d.attempt(ctx, ev, r); n != nil {
			stored = append(stored, n)
		}
	}

	d.logger.InfoContext(ctx, "notifications dispatched",
		"event_id", ev.ID,
		"complaint_id", ev.ComplaintID,
		"kind", ev.Kind,
		"recipients", len(recipients),
		"stored", len(stored))
	return stored
}

// attempt isolates one recipient: errors and panics end here.
func (d *Dispatcher) attempt(ctx context.Context, ev *complaint.Event, r Recipient) (stored *Notification) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logFailure(ctx, ev, r.ID, string(r.Type), "panic", fmt.Errorf("%v", rec))
			stored = nil
		}
	}()

	n := &Notification{
		ID:          uuid.NewString(),
		RecipientID: r.ID,
		Type:        r.Type,
		Payload:     datatypes.NewJSONType(buildPayload(ev, r)),
		CreatedAt:   d.now(),
	}
	if err := d.repo.Create(ctx, n); err != nil {
		d.logFailure(ctx, ev, r.ID, string(r.Type), "persist", err)
		return nil
	}

	d.publisher.Snapshot(ctx, realtime.TopicNotifications, n.ID, n.RecipientID, n)

	for _, dl := range d.deliverers {
		d.deliver(ctx, ev, dl, n)
	}
	return n
}

func (d *Dispatcher) deliver(ctx context.Context, ev *complaint.Event, dl Deliverer, n *Notification) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logFailure(ctx, ev, n.RecipientID, string(n.Type), dl.Name(), fmt.Errorf("panic: %v", rec))
		}
	}()
	if err := dl.Deliver(ctx, n); err != nil {
		d.logFailure(ctx, ev, n.RecipientID, string(n.Type), dl.Name(), err)
	}
}

func (d *Dispatcher) logFailure(ctx context.Context, ev *complaint.Event, recipientID, typ, stage string, err error) {
	derr := &apperr.NotificationDeliveryError{RecipientID: recipientID, Type: typ, Stage: stage, Err: err}
	d.logger.ErrorContext(ctx, "notification delivery failed",
		"event_id", ev.ID,
		"complaint_id", ev.ComplaintID,
		"stage", stage,
		"error", derr)
}
