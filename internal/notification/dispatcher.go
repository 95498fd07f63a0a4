package notification

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/bulkwear-backend/internal/metrics"
)

// Dispatcher sends emails off the request path. A failed send is logged and
// counted; it never fails the operation that triggered it.
type Dispatcher struct {
	sender  Sender
	timeout time.Duration
}

func NewDispatcher(sender Sender, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{sender: sender, timeout: timeout}
}

func (d *Dispatcher) Dispatch(msg Message) {
	go d.send(msg)
}

func (d *Dispatcher) send(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	err := d.sender.Send(ctx, msg)
	metrics.RecordEmail(msg.Template, err)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"to":       msg.To,
			"template": msg.Template,
		}).Error("Failed to send email")
	}
}
