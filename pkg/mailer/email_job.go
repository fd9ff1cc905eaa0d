package mailer

import (
	"github.com/oksasatya/go-user-registry/pkg/events"
	mailtpl "github.com/oksasatya/go-user-registry/pkg/mailer/templates"
)

// EmailJob is one mail to send, rendered from Template with Data.
type EmailJob struct {
	To       string
	Template string
	Data     mailtpl.EmailData
}

// JobForEvent returns the mail a lifecycle event triggers. ok is false for
// events that send nothing.
func JobForEvent(ev events.UserEvent, appName string) (job EmailJob, ok bool) {
	var tpl string
	switch ev.Type {
	case events.UserCreated:
		tpl = mailtpl.Welcome
	case events.UserDeactivated:
		tpl = mailtpl.Goodbye
	default:
		return EmailJob{}, false
	}
	return EmailJob{
		To:       ev.Email,
		Template: tpl,
		Data: mailtpl.EmailData{
			Name:    ev.Name,
			Email:   ev.Email,
			AppName: appName,
			TimeAt:  ev.OccurredAt,
		},
	}, true
}
