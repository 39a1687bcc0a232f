package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/communitybridge/pkg/config"
	"github.com/platinummonkey/communitybridge/pkg/observability"
)

// ReminderObserver records what the reminder did to a player
type ReminderObserver interface {
	Reminded(action string)
}

// ReminderResult summarises one reminder run
type ReminderResult struct {
	Checked  int
	Kicked   int
	Messaged int
	Failed   int
}

// Reminder periodically looks for online players without a linked account
// and either reminds them to register or kicks them.
type Reminder struct {
	services func() *Service
	dir      PlayerDirectory
	cfg      config.ReminderConfig
	observer ReminderObserver
	timeout  time.Duration
	log      *logrus.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewReminder creates a reminder. services returns the current Service so a
// reload takes effect on the next run. observer may be nil.
func NewReminder(services func() *Service, dir PlayerDirectory, cfg config.ReminderConfig, observer ReminderObserver, log *logrus.Logger) *Reminder {
	if log == nil {
		log = logrus.New()
	}
	return &Reminder{
		services: services,
		dir:      dir,
		cfg:      cfg,
		observer: observer,
		timeout:  time.Minute,
		log:      log,
	}
}

// Start schedules the reminder. It is a no-op when the reminder is disabled.
func (r *Reminder) Start() error {
	if !r.cfg.Enabled {
		r.log.Info("Unregistered player reminder is disabled")
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cron != nil {
		return fmt.Errorf("reminder already started")
	}

	c := cron.New()
	_, err := c.AddFunc(r.cfg.Schedule, func() {
		defer observability.RecoverPanic(r.log, "reminder")

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		r.Run(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reminder: %w", err)
	}

	c.Start()
	r.cron = c
	r.log.WithField("schedule", r.cfg.Schedule).Info("Unregistered player reminder started")
	return nil
}

// Stop halts the schedule and waits for a running reminder to finish or ctx
// to expire.
func (r *Reminder) Stop(ctx context.Context) error {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()

	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run checks every online player once
func (r *Reminder) Run(ctx context.Context) ReminderResult {
	var result ReminderResult
	svc := r.services()
	if svc == nil {
		return result
	}

	for _, player := range r.dir.OnlinePlayers(ctx) {
		if ctx.Err() != nil {
			break
		}
		result.Checked++
		if svc.GetUserIDForPlayer(ctx, player) != "" {
			continue
		}

		action := "messaged"
		var err error
		if r.cfg.KickUnregistered {
			action = "kicked"
			err = r.dir.Kick(ctx, player, r.cfg.KickMessage)
		} else {
			err = r.dir.Message(ctx, player, r.cfg.Message)
		}

		entry := r.log.WithFields(logrus.Fields{
			"uuid":   player.UUID,
			"name":   player.Name,
			"action": action,
		})
		if err != nil {
			result.Failed++
			r.record("failed")
			entry.WithError(err).Warn("Failed to remind unregistered player")
			continue
		}

		if action == "kicked" {
			result.Kicked++
		} else {
			result.Messaged++
		}
		r.record(action)
		entry.Debug("Reminded unregistered player")
	}

	r.log.WithFields(logrus.Fields{
		"checked":  result.Checked,
		"kicked":   result.Kicked,
		"messaged": result.Messaged,
		"failed":   result.Failed,
	}).Info("Unregistered player reminder finished")
	return result
}

func (r *Reminder) record(action string) {
	if r.observer != nil {
		r.observer.Reminded(action)
	}
}
