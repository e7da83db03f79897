package jobqueue

import (
	"context"
	"fmt"

	"github.com/ManuelReschke/GridFox/internal/pkg/mail"
	"github.com/gofiber/fiber/v2/log"
)

// Enqueuer is the part of Queue the notifier needs.
type Enqueuer interface {
	EnqueueJob(ctx context.Context, jobType JobType, payload map[string]interface{}) (*Job, error)
}

// ConfirmationSender delivers a rendered confirmation, usually *mail.SMTPMailer.
type ConfirmationSender interface {
	SendPurchaseConfirmation(ctx context.Context, msg mail.PurchaseConfirmation) error
}

// MailNotifier hands purchase confirmations to the queue so webhook
// responses do not wait on SMTP.
type MailNotifier struct {
	queue Enqueuer
}

func NewMailNotifier(queue Enqueuer) *MailNotifier {
	return &MailNotifier{queue: queue}
}

func (n *MailNotifier) SendPurchaseConfirmation(ctx context.Context, msg mail.PurchaseConfirmation) error {
	payload, err := PurchaseConfirmationToMap(msg)
	if err != nil {
		return fmt.Errorf("encode confirmation: %w", err)
	}
	job, err := n.queue.EnqueueJob(ctx, JobTypePurchaseConfirmation, payload)
	if err != nil {
		return err
	}
	log.Infof("[MailNotifier] Queued confirmation for grid %s as job %s", msg.GridID, job.ID)
	return nil
}

// PurchaseConfirmationHandler decodes the payload and sends it.
func PurchaseConfirmationHandler(sender ConfirmationSender) Handler {
	return func(ctx context.Context, job *Job) error {
		msg, err := PurchaseConfirmationFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("decode confirmation payload: %w", err)
		}
		if msg.To == "" {
			return fmt.Errorf("confirmation job %s has no recipient", job.ID)
		}
		return sender.SendPurchaseConfirmation(ctx, *msg)
	}
}
