package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lib/pq"
)

// NotificationFeed fans Postgres NOTIFY events out to per-recipient watchers.
// One listener connection serves every watcher in the process.
type NotificationFeed struct {
	dsn string

	mu       sync.Mutex
	watchers map[string]map[chan struct{}]struct{}
}

func NewNotificationFeed(dsn string) *NotificationFeed {
	return &NotificationFeed{
		dsn:      dsn,
		watchers: make(map[string]map[chan struct{}]struct{}),
	}
}

// Run listens until ctx is cancelled.
func (f *NotificationFeed) Run(ctx context.Context) error {
	listener := pq.NewListener(f.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			slog.Warn("notification listener event", "event", ev, "error", err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(NotificationChannel); err != nil {
		return fmt.Errorf("listen %s: %w", NotificationChannel, err)
	}
	slog.Info("notification feed listening", "channel", NotificationChannel)

	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			if n == nil {
				// reconnected; events may have been missed
				f.signalAll()
				continue
			}
			f.signal(n.Extra)
		case <-ping.C:
			go func() {
				if err := listener.Ping(); err != nil {
					slog.Warn("notification listener ping failed", "error", err)
				}
			}()
		}
	}
}

// Watch registers a watcher for recipientID. The returned channel is closed
// once ctx is done.
func (f *NotificationFeed) Watch(ctx context.Context, recipientID string) <-chan struct{} {
	ch := make(chan struct{}, 1)
	f.mu.Lock()
	set, ok := f.watchers[recipientID]
	if !ok {
		set = make(map[chan struct{}]struct{})
		f.watchers[recipientID] = set
	}
	set[ch] = struct{}{}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.watchers[recipientID], ch)
		if len(f.watchers[recipientID]) == 0 {
			delete(f.watchers, recipientID)
		}
		close(ch)
		f.mu.Unlock()
	}()
	return ch
}

func (f *NotificationFeed) signal(recipientID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.watchers[recipientID] {
		wake(ch)
	}
}

func (f *NotificationFeed) signalAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, set := range f.watchers {
		for ch := range set {
			wake(ch)
		}
	}
}

// wake does a non-blocking send; a pending signal already covers the change.
func wake(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
