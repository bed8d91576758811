package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/parkconnect-api/internal/common"
	"github.com/noah-isme/parkconnect-api/internal/events"
)

// TypeEmail is the asynq task type for visitor emails.
const TypeEmail = "notify:email"

// Queue is the asynq queue email tasks run on.
const Queue = "notifications"

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueuedNotifier renders emails in the API process and hands delivery to the
// worker.
type QueuedNotifier struct {
	Tasks        Enqueuer
	Enabled      bool
	TopicToggles map[string]bool
	MaxRetry     int
}

// Notify implements events.Notifier. An event is enqueued at most once.
func (n QueuedNotifier) Notify(ctx context.Context, ev events.Event) error {
	if !n.Enabled || n.Tasks == nil {
		return nil
	}
	msg, ok, err := Render(ev, n.TopicToggles)
	if err != nil || !ok {
		return err
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	retries := n.MaxRetry
	if retries <= 0 {
		retries = 6
	}
	task := asynq.NewTask(TypeEmail, payload, asynq.Queue(Queue), asynq.MaxRetry(retries), asynq.TaskID("email:"+msg.EventID))
	if _, err := n.Tasks.EnqueueContext(ctx, task); err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return fmt.Errorf("enqueue email: %w", err)
	}
	return nil
}

// EmailWorker delivers notify:email tasks.
type EmailWorker struct {
	Mail   common.EmailSender
	Guard  SentGuard
	Logger zerolog.Logger
}

// ProcessTask implements asynq.Handler.
func (w EmailWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if w.Mail == nil {
		return errors.New("email worker: sender not configured")
	}
	var msg Message
	if err := json.Unmarshal(t.Payload(), &msg); err != nil {
		return fmt.Errorf("decode email task: %v: %w", err, asynq.SkipRetry)
	}
	if msg.To == "" {
		return nil
	}
	first, err := w.Guard.Acquire(ctx, msg.EventID)
	if err != nil {
		return err
	}
	if !first {
		w.Logger.Debug().Str("event_id", msg.EventID).Msg("email already sent")
		return nil
	}
	if err := w.Mail.Send(msg.To, msg.Subject, msg.HTML); err != nil {
		if relErr := w.Guard.Release(ctx, msg.EventID); relErr != nil {
			w.Logger.Warn().Err(relErr).Str("event_id", msg.EventID).Msg("release email guard")
		}
		return err
	}
	return nil
}

// Register mounts the worker on mux.
func (w EmailWorker) Register(mux *asynq.ServeMux) {
	mux.Handle(TypeEmail, w)
}
