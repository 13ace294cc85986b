package procs

import (
	"context"

	"github.com/drblury/agentflow/internal/agent/process"
	"github.com/drblury/agentflow/internal/agent/retry"
)

// SendConfirmationEmail sends the submitter a confirmation mail once the
// submission is finalized. Delivery failures are retried indefinitely with
// steep backoff so a mail outage never loses the notification.
func SendConfirmationEmail(mail MailSender) process.Definition {
	policy := retry.DefaultPolicy()
	policy.MaxRetries = retry.Unlimited
	policy.Backoff = 4

	return process.Define("SendConfirmationEmail",
		process.NewStep("send",
			func(ctx context.Context, _ any, trigger *process.Trigger, _ process.EmitFunc) (any, error) {
				if trigger.Event == nil || trigger.After == nil {
					return nil, process.Fail(nil, "missing event or post-event submission state")
				}
				recipient := trigger.Event.Base().Creator
				if recipient.Email == "" {
					return nil, process.Fail(nil, "submitter has no email address")
				}
				if err := mail.SendConfirmation(ctx, recipient, trigger.After); err != nil {
					return nil, process.Recover(err, "mail delivery failed; try again")
				}
				return nil, nil
			}).WithPolicy(policy),
	)
}
