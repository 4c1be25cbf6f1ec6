package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ainterviewer/identity-service/internal/api/metrics"
	"github.com/ainterviewer/identity-service/internal/core/domain"
	"github.com/ainterviewer/identity-service/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Sender delivers one notification synchronously.
type Sender interface {
	Send(ctx context.Context, n domain.Notification) error
}

// Dispatcher delivers notifications in the background so that credential
// flows never wait on the mail provider. Notifications are sharded by
// recipient, keeping per-recipient ordering.
type Dispatcher struct {
	workers []chan domain.Notification
	sender  Sender
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, sender Sender, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.Notification, numWorkers),
		sender:  sender,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.Notification, channelBuffer)
	}
	return d
}

var _ ports.Notifier = (*Dispatcher)(nil)

// Start launches the workers. They run until Shutdown drains the queues.
func (d *Dispatcher) Start() {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(i, ch)
	}
}

// Notify enqueues n without blocking. When the worker queue is full the
// notification is dropped and logged.
func (d *Dispatcher) Notify(_ context.Context, n domain.Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn().Str("kind", string(n.Kind)).Msg("notification after shutdown dropped")
		metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "dropped").Inc()
		return
	}

	idx := d.shardIndex(n.Recipient)
	select {
	case d.workers[idx] <- n:
		metrics.NotificationQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
	default:
		d.log.Warn().Str("kind", string(n.Kind)).Int("worker_id", idx).Msg("notification queue full, dropping")
		metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "dropped").Inc()
	}
}

// Shutdown stops accepting notifications and waits for the queued ones to be
// delivered, or for ctx to end.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shardIndex maps a recipient deterministically to a worker index.
func (d *Dispatcher) shardIndex(recipient string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(recipient))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(id int, ch <-chan domain.Notification) {
	defer d.wg.Done()
	depth := metrics.NotificationQueueDepth.WithLabelValues(strconv.Itoa(id))
	for n := range ch {
		depth.Dec()
		// Delivery outlives the request that triggered it.
		if err := d.sender.Send(context.Background(), n); err != nil {
			d.log.Error().Err(err).
				Str("kind", string(n.Kind)).
				Int("worker_id", id).
				Msg("notification delivery failed")
			metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "failed").Inc()
			continue
		}
		metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "sent").Inc()
	}
}
