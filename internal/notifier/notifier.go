package notifier

import (
	"context"
	"sync"

	"github.com/jwalitptl/radiology-api/internal/model"
	"github.com/jwalitptl/radiology-api/pkg/messaging"
)

// Notifier is the outbound notification port. Pushes are best-effort: callers
// log failures and move on, a failed push never rolls back the state change
// that produced it.
type Notifier interface {
	Push(ctx context.Context, notification *model.Notification) error
}

// BrokerNotifier publishes notifications on the shared broker channel. The
// websocket gateway in the api process subscribes to the same channel and
// fans messages out to connected clients.
type BrokerNotifier struct {
	broker messaging.Broker
}

func NewBrokerNotifier(broker messaging.Broker) *BrokerNotifier {
	return &BrokerNotifier{broker: broker}
}

func (n *BrokerNotifier) Push(ctx context.Context, notification *model.Notification) error {
	return n.broker.Publish(ctx, messaging.ChannelNotifications, notification)
}

// Recorder is an in-memory Notifier for tests.
type Recorder struct {
	mu     sync.Mutex
	pushed []*model.Notification
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Push(_ context.Context, notification *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushed = append(r.pushed, notification)
	return nil
}

// Pushed returns a copy of everything recorded so far.
func (r *Recorder) Pushed() []*model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Notification, len(r.pushed))
	copy(out, r.pushed)
	return out
}
