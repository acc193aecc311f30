// Package sweep runs the deadline reminder loop: a periodic pass over
// complaints whose live CAPA deadline is approaching, emailing the assignee
// and recording a portal notification for each.
package sweep

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/foshrdd/grievance/pkg/config"
	"github.com/foshrdd/grievance/pkg/metrics"
	"github.com/foshrdd/grievance/pkg/model"
)

type ComplaintSource interface {
	DueForReminder(ctx context.Context, by time.Time) ([]model.Complaint, error)
}

type NotificationStore interface {
	Create(ctx context.Context, notification *model.Notification) error
}

type Directory interface {
	GetLoginByAccessID(ctx context.Context, accessID uint) (*model.Login, error)
}

type Emitter interface {
	Send(recipient, subject, body string) bool
}

type Sweeper struct {
	complaints    ComplaintSource
	notifications NotificationStore
	directory     Directory
	email         Emitter
	logger        *zap.Logger

	interval      time.Duration
	retryInterval time.Duration
	horizon       time.Duration
	now           func() time.Time
}

func NewSweeper(
	complaints ComplaintSource,
	notifications NotificationStore,
	directory Directory,
	email Emitter,
	cfg config.SweepConfig,
	logger *zap.Logger,
) *Sweeper {
	return &Sweeper{
		complaints:    complaints,
		notifications: notifications,
		directory:     directory,
		email:         email,
		logger:        logger,
		interval:      cfg.Interval,
		retryInterval: cfg.RetryInterval,
		horizon:       cfg.Horizon,
		now:           time.Now,
	}
}

// Run executes passes until the context is cancelled. A failed pass is
// retried on the shorter interval; the loop itself never terminates on
// pass errors.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("deadline sweeper started",
		zap.Duration("interval", s.interval),
		zap.Duration("horizon", s.horizon))

	for {
		wait := s.interval
		if err := s.Pass(ctx); err != nil {
			s.logger.Error("sweep pass failed", zap.Error(err))
			wait = s.retryInterval
		}

		select {
		case <-ctx.Done():
			s.logger.Info("deadline sweeper stopped")
			return
		case <-time.After(wait):
		}
	}
}

// Pass performs one sweep: every complaint whose live deadline falls within
// the horizon gets a best-effort email to its assignee and an unconditional
// portal notification. Passes do not deduplicate against earlier passes, so
// a complaint inside the horizon is reminded on every pass until resolved.
func (s *Sweeper) Pass(ctx context.Context) error {
	start := s.now()
	due, err := s.complaints.DueForReminder(ctx, start.Add(s.horizon))
	if err != nil {
		return fmt.Errorf("selecting due complaints: %w", err)
	}

	for i := range due {
		s.remind(ctx, &due[i])
	}

	metrics.SweepPassDuration.Observe(time.Since(start).Seconds())
	if len(due) > 0 {
		s.logger.Info("sweep pass complete",
			zap.Int("reminded", len(due)),
			zap.Duration("elapsed", time.Since(start)))
	}
	return nil
}

func (s *Sweeper) remind(ctx context.Context, c *model.Complaint) {
	deadline, round, ok := c.LiveDeadline()
	if !ok {
		return
	}

	subject := reminderSubject(c.TicketNumber, round)
	body := reminderBody(c, *deadline, round)

	// The email is best effort and gated on resolving the assignee; the
	// portal notification is written regardless.
	if c.AssignedTo != nil {
		if login, err := s.directory.GetLoginByAccessID(ctx, *c.AssignedTo); err == nil {
			if ok := s.email.Send(login.Email, subject, body); !ok {
				s.logger.Warn("reminder email failed",
					zap.String("ticket", c.TicketNumber),
					zap.String("recipient", login.Email))
			}
		} else {
			s.logger.Warn("assignee has no login, skipping reminder email",
				zap.String("ticket", c.TicketNumber),
				zap.Uint("assigned_to", *c.AssignedTo))
		}
	}

	notification := &model.Notification{
		Message: fmt.Sprintf("%s Complaint #%s is due on %s.",
			subject, c.TicketNumber, deadline.Format("02 Jan 2006 03:04 PM")),
	}
	if c.AssignedTo != nil {
		notification.UserID = *c.AssignedTo
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		s.logger.Error("reminder notification insert failed",
			zap.String("ticket", c.TicketNumber), zap.Error(err))
		return
	}

	metrics.SweepReminders.WithLabelValues(fmt.Sprintf("%d", round)).Inc()
}

func reminderSubject(ticketNumber string, round int) string {
	label := "CAPA"
	if round > 0 {
		label = fmt.Sprintf("CAPA%d", round)
	}
	return fmt.Sprintf("URGENT: %s Deadline Approaching for Complaint #%s", label, ticketNumber)
}

func reminderBody(c *model.Complaint, deadline time.Time, round int) string {
	label := "CAPA"
	if round > 0 {
		label = fmt.Sprintf("CAPA%d", round)
	}
	return fmt.Sprintf(
		"<h2>Deadline Reminder</h2>"+
			"<p>Ticket Number: %s</p>"+
			"<p>Category: %s</p>"+
			"<p>%s Deadline: %s</p>"+
			"<p>Please submit the corrective action before the deadline.</p>",
		c.TicketNumber, c.Categories, label, deadline.Format("02 Jan 2006 03:04 PM"),
	)
}
