package jobqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/MemberFox/MemberFox/internal/pkg/mail"
	"github.com/MemberFox/MemberFox/internal/pkg/metrics/counter"
)

// processEmailJob sends one transactional mail.
func (q *Queue) processEmailJob(ctx context.Context, job *Job) error {
	var payload EmailJobPayload
	if err := job.decodePayload(&payload); err != nil {
		return fmt.Errorf("email job %s: bad payload: %w", job.ID, err)
	}

	log.Infof("[Email] sending %s mail to %s", payload.Kind, payload.To)

	switch payload.Kind {
	case EmailKindMagicLink:
		ttl := time.Duration(payload.TTLMinutes) * time.Minute
		if ttl <= 0 {
			ttl = 15 * time.Minute
		}
		if err := mail.SendMagicLink(payload.To, payload.Name, payload.Link, ttl); err != nil {
			return fmt.Errorf("send magic link mail: %w", err)
		}
		// delivered link mails are counted per user and flushed in batches
		if payload.UserID > 0 {
			if err := counter.AddMagicMail(payload.UserID); err != nil {
				log.Errorf("[Email] count magic mail for user %d: %v", payload.UserID, err)
			}
		}
	case EmailKindWelcome:
		if err := mail.SendWelcome(payload.To, payload.Name, payload.Link); err != nil {
			return fmt.Errorf("send welcome mail: %w", err)
		}
	case EmailKindEmailChange:
		if err := mail.SendEmailChangeConfirmation(payload.To, payload.Name, payload.Link); err != nil {
			return fmt.Errorf("send email change mail: %w", err)
		}
	default:
		return fmt.Errorf("unknown email kind %q", payload.Kind)
	}

	log.Infof("[Email] %s mail to %s sent", payload.Kind, payload.To)
	return nil
}

// EnqueueMagicLinkMail queues a login link mail for a member.
func (q *Queue) EnqueueMagicLinkMail(userID uint, to, name, link string, ttl time.Duration) (*Job, error) {
	return q.Enqueue(JobTypeEmail, EmailJobPayload{
		Kind:       EmailKindMagicLink,
		To:         to,
		Name:       name,
		Link:       link,
		TTLMinutes: int(ttl / time.Minute),
		UserID:     userID,
	})
}

// EnqueueWelcomeMail queues the first mail a new member receives. The link
// points at the setup wizard.
func (q *Queue) EnqueueWelcomeMail(userID uint, to, name, setupLink string) (*Job, error) {
	return q.Enqueue(JobTypeEmail, EmailJobPayload{
		Kind:   EmailKindWelcome,
		To:     to,
		Name:   name,
		Link:   setupLink,
		UserID: userID,
	})
}

// EnqueueEmailChangeMail queues the confirmation mail sent to a member's new
// address during an email change.
func (q *Queue) EnqueueEmailChangeMail(userID uint, to, name, link string) (*Job, error) {
	return q.Enqueue(JobTypeEmail, EmailJobPayload{
		Kind:   EmailKindEmailChange,
		To:     to,
		Name:   name,
		Link:   link,
		UserID: userID,
	})
}
