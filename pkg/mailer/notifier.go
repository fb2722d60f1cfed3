package mailer

import (
	"context"

	"github.com/prestigemetals/account-service/pkg/helpers"
)

// QueueNotifier dispatches templated emails by publishing jobs to the email
// queue; the worker renders and delivers them. A publish failure is returned
// to the caller so an operation never claims "check your email" when nothing
// was queued.
type QueueNotifier struct {
	Pub     *helpers.RabbitPublisher
	Enabled bool
}

func NewQueueNotifier(pub *helpers.RabbitPublisher, enabled bool) *QueueNotifier {
	return &QueueNotifier{Pub: pub, Enabled: enabled}
}

func (n *QueueNotifier) SendTemplatedEmail(ctx context.Context, template, subject, recipient string, data map[string]any) error {
	if !n.Enabled {
		return nil
	}
	job := EmailJob{To: recipient, Subject: subject, Template: template, Data: data}
	return n.Pub.PublishJSON(ctx, job)
}
