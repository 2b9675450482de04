package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alufers/stars-league-bot/league"
	"github.com/alufers/stars-league-bot/store"
)

// MatchSource is the part of *schedule.Source the scheduler reads.
type MatchSource interface {
	FetchMatches(ctx context.Context) []league.Match
	Enrich(ctx context.Context, matches ...league.Match) []league.Game
}

// Ledger remembers which matches already had their reminder sent.
type Ledger interface {
	HasNotified(ctx context.Context, matchID int) (bool, error)
	Record(ctx context.Context, matchID int, recipientCount int) error
}

type SubscriberLister interface {
	ListEnabled(ctx context.Context) ([]store.Subscriber, error)
}

type Sender interface {
	SendAll(ctx context.Context, chatIDs []int64, msg Message) int
}

// TickReport summarizes one scheduler tick.
type TickReport struct {
	Skipped         bool
	Fetched         int
	Due             int
	Sent            int
	Recipients      int
	Pending         int
	Missed          int
	Started         int
	AlreadyNotified int
	Errors          int
}

type SchedulerConfig struct {
	Policy    league.Policy
	Formatter league.Formatter
	Interval  time.Duration
}

// Scheduler periodically checks the schedule and sends each due match's
// reminder at most once.
type Scheduler struct {
	source      MatchSource
	ledger      Ledger
	subscribers SubscriberLister
	sender      Sender
	policy      league.Policy
	formatter   league.Formatter
	interval    time.Duration
	logger      *zap.Logger
	now         func() time.Time

	// mu guards the tick body. Overlapping ticks are skipped, not queued.
	mu sync.Mutex
}

func NewScheduler(
	source MatchSource,
	ledger Ledger,
	subscribers SubscriberLister,
	sender Sender,
	cfg SchedulerConfig,
	logger *zap.Logger,
) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.Policy.NotificationHours < 1 {
		cfg.Policy.NotificationHours = 2
	}
	return &Scheduler{
		source:      source,
		ledger:      ledger,
		subscribers: subscribers,
		sender:      sender,
		policy:      cfg.Policy,
		formatter:   cfg.Formatter,
		interval:    cfg.Interval,
		logger:      logger,
		now:         time.Now,
	}
}

// Run ticks once immediately and then on every interval until ctx is done.
// A tick that has started is allowed to finish.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("Starting notification scheduler",
		zap.Duration("interval", s.interval),
		zap.Int("notification_hours", s.policy.NotificationHours))

	tickCtx := context.WithoutCancel(ctx)
	s.Tick(tickCtx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Notification scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(tickCtx)
		}
	}
}

// Tick runs one check. If another tick is in progress it returns immediately
// with Skipped set.
func (s *Scheduler) Tick(ctx context.Context) TickReport {
	if !s.mu.TryLock() {
		schedulerTicks.WithLabelValues(outcomeSkippedOverlap).Inc()
		s.logger.Warn("Previous scheduler tick still running, skipping")
		return TickReport{Skipped: true}
	}
	defer s.mu.Unlock()

	start := time.Now()
	var report TickReport

	matches := s.source.FetchMatches(ctx)
	report.Fetched = len(matches)
	matchesFetched.Set(float64(len(matches)))
	if len(matches) == 0 {
		schedulerTicks.WithLabelValues(outcomeNoData).Inc()
		s.logger.Info("No matches available, ending tick")
		return report
	}

	now := s.now()
	for _, m := range matches {
		if !league.IsUpcoming(m, now) {
			report.Started++
			continue
		}
		s.processMatch(ctx, m, now, &report)
	}

	schedulerTicks.WithLabelValues(outcomeCompleted).Inc()
	tickDuration.Observe(time.Since(start).Seconds())
	s.logger.Info("Scheduler tick complete",
		zap.Int("fetched", report.Fetched),
		zap.Int("due", report.Due),
		zap.Int("sent", report.Sent),
		zap.Int("recipients", report.Recipients),
		zap.Int("pending", report.Pending),
		zap.Int("missed", report.Missed),
		zap.Int("already_notified", report.AlreadyNotified),
		zap.Int("errors", report.Errors),
		zap.Duration("duration", time.Since(start)))
	return report
}

func (s *Scheduler) processMatch(ctx context.Context, m league.Match, now time.Time, report *TickReport) {
	log := s.logger.With(
		zap.Int("match_id", m.ID),
		zap.Time("scheduled_at", m.ScheduledAt),
		zap.Float64("hours_until", league.HoursUntil(m, now)))
	defer func() {
		if r := recover(); r != nil {
			report.Errors++
			log.Error("Panic while processing match", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	notified, err := s.ledger.HasNotified(ctx, m.ID)
	if err != nil {
		report.Errors++
		log.Error("Failed to check notification ledger", zap.Error(err))
		return
	}
	if notified {
		report.AlreadyNotified++
		log.Debug("Match outcome", zap.String("outcome", "already_notified"))
		return
	}

	switch w := s.policy.Classify(m, now); w {
	case league.WindowPending:
		report.Pending++
		log.Debug("Match outcome", zap.String("outcome", w.String()))
		return
	case league.WindowMissed:
		// No late send: a window that passed while the bot was down stays missed.
		report.Missed++
		log.Info("Match outcome", zap.String("outcome", w.String()))
		return
	case league.WindowStarted:
		report.Started++
		return
	}

	report.Due++
	log.Info("Match outcome", zap.String("outcome", "due"))
	if err := s.dispatch(ctx, m, report); err != nil {
		report.Errors++
		log.Error("Failed to send match reminder", zap.Error(err))
	}
}

func (s *Scheduler) dispatch(ctx context.Context, m league.Match, report *TickReport) error {
	subs, err := s.subscribers.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("list subscribers: %w", err)
	}
	if len(subs) == 0 {
		s.logger.Info("No subscribers with notifications enabled, not recording", zap.Int("match_id", m.ID))
		return nil
	}
	chatIDs := make([]int64, 0, len(subs))
	for _, sub := range subs {
		chatIDs = append(chatIDs, sub.TelegramID)
	}

	games := s.source.Enrich(ctx, m)
	if len(games) == 0 {
		return errors.New("enrich returned no game")
	}
	sent := s.sender.SendAll(ctx, chatIDs, ReminderMessage(s.formatter, games[0]))
	report.Sent++
	report.Recipients += sent

	err = s.ledger.Record(ctx, m.ID, sent)
	if errors.Is(err, store.ErrAlreadyNotified) {
		report.AlreadyNotified++
		s.logger.Info("Match recorded by another writer", zap.Int("match_id", m.ID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("record notification: %w", err)
	}
	s.logger.Info("Match outcome",
		zap.Int("match_id", m.ID),
		zap.String("outcome", "sent"),
		zap.Int("recipients", sent),
		zap.Int("subscribers", len(subs)))
	return nil
}
