package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/dmitrijs2005/eventhub/internal/logging"
	"github.com/dmitrijs2005/eventhub/internal/server/models"
)

// DefaultKeep is how many notifications a Recorder remembers by default.
const DefaultKeep = 100

var errAlreadyStarted = errors.New("recorder already started")

// Recorder consumes notifications, logs the simulated SMS that would be sent
// and keeps the most recent ones in memory. Verification codes are only
// dispatched, never kept.
type Recorder struct {
	mu      sync.Mutex
	recent  []models.Notification
	keep    int
	started bool
	done    chan struct{}
	log     logging.Logger
}

func NewRecorder(keep int, log logging.Logger) *Recorder {
	if keep <= 0 {
		keep = DefaultKeep
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Recorder{
		keep: keep,
		done: make(chan struct{}),
		log:  log.With("module", "notify"),
	}
}

// Start subscribes to Topic and consumes in the background until ctx is
// cancelled or the subscriber is closed. The subscription exists when Start
// returns, so nothing published afterwards is missed.
func (r *Recorder) Start(ctx context.Context, sub message.Subscriber) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return errAlreadyStarted
	}
	r.started = true
	r.mu.Unlock()

	msgs, err := sub.Subscribe(ctx, Topic)
	if err != nil {
		close(r.done)
		return fmt.Errorf("subscribe %s: %w", Topic, err)
	}

	go r.consume(ctx, msgs)
	return nil
}

// Done is closed once the consumer goroutine exits.
func (r *Recorder) Done() <-chan struct{} {
	return r.done
}

func (r *Recorder) consume(ctx context.Context, msgs <-chan *message.Message) {
	defer close(r.done)

	for msg := range msgs {
		var n models.Notification
		if err := json.Unmarshal(msg.Payload, &n); err != nil {
			r.log.Warn(ctx, "dropping malformed notification", "message_id", msg.UUID, "error", err)
			msg.Ack()
			continue
		}

		r.log.Info(ctx, "sms dispatched",
			"kind", string(n.Kind),
			"to", n.Phone,
			"student_id", n.StudentID,
			"event_id", n.EventID,
			"text", smsText(n))
		r.record(n)
		msg.Ack()
	}
}

func (r *Recorder) record(n models.Notification) {
	n.Code = ""

	r.mu.Lock()
	defer r.mu.Unlock()

	r.recent = append(r.recent, n)
	if over := len(r.recent) - r.keep; over > 0 {
		r.recent = append(r.recent[:0], r.recent[over:]...)
	}
}

// Recent returns the remembered notifications, newest first.
func (r *Recorder) Recent() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Notification, len(r.recent))
	for i, n := range r.recent {
		out[len(out)-1-i] = n
	}
	return out
}

func smsText(n models.Notification) string {
	switch n.Kind {
	case models.NotifyRegistered:
		return fmt.Sprintf("Hi %s, you are registered for %q.", n.FullName, n.EventName)
	case models.NotifyCancelled:
		return fmt.Sprintf("Hi %s, your registration for %q was cancelled.", n.FullName, n.EventName)
	case models.NotifySignupCode:
		return fmt.Sprintf("Your eventhub verification code is %s. It expires in 5 minutes.", n.Code)
	}
	return fmt.Sprintf("Update on %q.", n.EventName)
}
