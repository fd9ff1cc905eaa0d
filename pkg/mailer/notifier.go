package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-registry/pkg/events"
	mailtpl "github.com/oksasatya/go-user-registry/pkg/mailer/templates"
)

// ErrPermanent marks a message that will never succeed; it must not be requeued.
var ErrPermanent = errors.New("permanent failure")

type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// Notifier turns lifecycle events into mails.
type Notifier struct {
	Sender  Sender
	AppName string
	Logger  *logrus.Logger
}

// Handle processes one queue message. A nil result means ack. Errors wrapping
// ErrPermanent mean drop, any other error means retry later.
func (n *Notifier) Handle(ctx context.Context, body []byte) error {
	var ev events.UserEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: decode event: %v", ErrPermanent, err)
	}
	if !events.Known(ev.Type) {
		return fmt.Errorf("%w: unknown event type %q", ErrPermanent, ev.Type)
	}

	job, ok := JobForEvent(ev, n.AppName)
	if !ok {
		n.Logger.WithFields(logrus.Fields{"event": ev.Type, "user_id": ev.UserID}).Debug("no mail for event")
		return nil
	}
	if job.To == "" {
		return fmt.Errorf("%w: event %s for user %d has no email", ErrPermanent, ev.Type, ev.UserID)
	}

	subject, text, html, err := mailtpl.Render(job.Template, job.Data)
	if err != nil {
		return fmt.Errorf("%w: render %s: %v", ErrPermanent, job.Template, err)
	}
	if err := n.Sender.Send(ctx, job.To, subject, text, html); err != nil {
		return fmt.Errorf("send %s to user %d: %w", job.Template, ev.UserID, err)
	}
	n.Logger.WithFields(logrus.Fields{"event": ev.Type, "user_id": ev.UserID, "template": job.Template}).Info("mail sent")
	return nil
}
