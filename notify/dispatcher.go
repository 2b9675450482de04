package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/codeGROOVE-dev/retry"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// BotAPI is the part of *tgbotapi.BotAPI the dispatcher needs.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type DispatcherConfig struct {
	// RatePerSecond caps sends across all workers. Telegram allows about 30/s.
	RatePerSecond float64
	Workers       int
	Attempts      uint
	RetryDelay    time.Duration
}

// Dispatcher delivers messages to individual chats and fans them out.
type Dispatcher struct {
	bot        BotAPI
	limiter    *rate.Limiter
	workers    int
	attempts   uint
	retryDelay time.Duration
	timer      retry.Timer
	logger     *zap.Logger
}

func NewDispatcher(bot BotAPI, cfg DispatcherConfig, logger *zap.Logger) *Dispatcher {
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 25
	}
	if cfg.Workers < 1 {
		cfg.Workers = 4
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &Dispatcher{
		bot:        bot,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
		workers:    cfg.Workers,
		attempts:   cfg.Attempts,
		retryDelay: cfg.RetryDelay,
		logger:     logger,
	}
}

// IsPermanent reports whether a Telegram error will not go away on retry,
// e.g. the user blocked the bot or the chat does not exist.
func IsPermanent(err error) bool {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500 {
		return false
	}
	return apiErr.Code >= 400
}

// retryAfter returns the wait Telegram asked for with a 429, or zero.
func retryAfter(err error) time.Duration {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusTooManyRequests {
		return 0
	}
	return time.Duration(apiErr.RetryAfter) * time.Second
}

var backoff = retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)

// delay is jittered exponential backoff capped at 8x the base delay. A flood
// wait sent by Telegram overrides the cap.
func (d *Dispatcher) delay(attempt uint, err error, cfg *retry.Config) time.Duration {
	wait := min(backoff(attempt, err, cfg), 8*d.retryDelay)
	return max(wait, retryAfter(err))
}

// Send delivers msg to chatID, retrying transient failures.
func (d *Dispatcher) Send(ctx context.Context, chatID int64, msg Message) error {
	cfg := msg.Config(chatID)
	var lastErr error
	opts := []retry.Option{
		retry.Attempts(d.attempts),
		retry.Delay(d.retryDelay),
		retry.MaxJitter(d.retryDelay / 2),
		retry.DelayType(d.delay),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			d.logger.Info("Retrying send", zap.Int64("chat_id", chatID), zap.Uint("attempt", n), zap.Error(err))
		}),
	}
	if d.timer != nil {
		opts = append(opts, retry.WithTimer(d.timer))
	}
	err := retry.Do(
		func() error {
			if err := d.limiter.Wait(ctx); err != nil {
				lastErr = fmt.Errorf("rate limit wait: %w", err)
				return retry.Unrecoverable(lastErr)
			}
			_, err := d.bot.Send(cfg)
			if err == nil {
				return nil
			}
			lastErr = err
			if IsPermanent(err) {
				return retry.Unrecoverable(err)
			}
			return err
		},
		opts...,
	)
	if err != nil && lastErr != nil {
		return lastErr
	}
	return err
}

func (d *Dispatcher) safeSend(ctx context.Context, chatID int64, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while sending: %v", r)
		}
	}()
	return d.Send(ctx, chatID, msg)
}

// SendAll sends msg to every chat independently and returns how many sends
// succeeded. Failures are logged and never stop the batch.
func (d *Dispatcher) SendAll(ctx context.Context, chatIDs []int64, msg Message) int {
	if len(chatIDs) == 0 {
		return 0
	}
	workers := min(d.workers, len(chatIDs))

	ch := make(chan int64, len(chatIDs))
	for _, id := range chatIDs {
		ch <- id
	}
	close(ch)

	var sent atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chatID := range ch {
				if err := d.safeSend(ctx, chatID, msg); err != nil {
					notificationsFailed.Inc()
					d.logger.Warn("Failed to send notification",
						zap.Int64("chat_id", chatID),
						zap.Bool("permanent", IsPermanent(err)),
						zap.Error(err))
					continue
				}
				notificationsSent.Inc()
				sent.Add(1)
			}
		}()
	}
	wg.Wait()

	n := int(sent.Load())
	d.logger.Info("Notification batch complete",
		zap.Int("recipients", len(chatIDs)), zap.Int("sent", n), zap.Int("failed", len(chatIDs)-n))
	return n
}
