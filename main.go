// Command stars-bot is the Telegram bot of the Time of the Stars hockey
// league. It shows the match schedule and reminds subscribed users before
// each match.
//
// Usage:
//
//	stars-bot serve
//	stars-bot check --dry-run
//	stars-bot upcoming --limit 5
//	stars-bot config init
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"
	_ "time/tzdata"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/alufers/stars-league-bot/league"
	"github.com/alufers/stars-league-bot/notify"
	"github.com/alufers/stars-league-bot/schedule"
	"github.com/alufers/stars-league-bot/store"
)

type ledger interface {
	notify.Ledger
	recentLister
}

// app holds what every command needs once config is loaded.
type app struct {
	cfg    *Config
	logger *zap.Logger
}

func main() {
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:           "stars-bot",
		Short:         "Time of the Stars league bot",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(upcomingCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runApp(fn func(ctx context.Context, a *app) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(configFilePath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	return fn(ctx, &app{cfg: cfg, logger: logger})
}

func (a *app) formatter() league.Formatter {
	return league.Formatter{
		Location:     a.cfg.Location(),
		StandingsURL: a.cfg.StandingsURL,
		LeadersURL:   a.cfg.LeadersURL,
	}
}

func (a *app) source() *schedule.Source {
	client := schedule.NewClient(schedule.ClientConfig{
		TeamsURL: a.cfg.TeamsURL,
		GamesURL: a.cfg.GamesURL,
		Timeout:  a.cfg.HTTPTimeout,
	}, a.logger.Named("schedule"))
	return schedule.NewSource(client, a.cfg.Location(), a.cfg.TeamsCacheTTL, a.logger.Named("schedule"))
}

// openLedger returns the configured ledger backend and a close func.
func (a *app) openLedger(ctx context.Context, db *gorm.DB) (ledger, func(), error) {
	if a.cfg.LedgerBackend != ledgerRedis {
		return store.NewSQLLedger(db), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     a.cfg.RedisAddr,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", a.cfg.RedisAddr, err)
	}
	a.logger.Info("Using redis notification ledger", zap.String("addr", a.cfg.RedisAddr))
	return store.NewRedisLedger(client, ""), func() { client.Close() }, nil
}

func (a *app) newBot() (*tgbotapi.BotAPI, error) {
	if a.cfg.BotToken == "" {
		return nil, errors.New("BOT_TOKEN is not set")
	}
	bot, err := tgbotapi.NewBotAPI(a.cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	a.logger.Info("Authorized on account", zap.String("user_name", bot.Self.UserName))
	return bot, nil
}

func (a *app) newScheduler(source *schedule.Source, l ledger, subs *store.SubscriberStore, bot notify.BotAPI) *notify.Scheduler {
	dispatcher := notify.NewDispatcher(bot, notify.DispatcherConfig{
		RatePerSecond: a.cfg.SendRatePerSecond,
		Workers:       a.cfg.SendWorkers,
	}, a.logger.Named("dispatcher"))
	return notify.NewScheduler(source, l, subs, dispatcher, notify.SchedulerConfig{
		Policy:    league.Policy{NotificationHours: a.cfg.NotificationHours},
		Formatter: a.formatter(),
		Interval:  a.cfg.PollInterval,
	}, a.logger.Named("scheduler"))
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot, the notification scheduler and the status server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(serve)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	db, err := store.Open(a.cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close(db)
	l, closeLedger, err := a.openLedger(ctx, db)
	if err != nil {
		return err
	}
	defer closeLedger()

	bot, err := a.newBot()
	if err != nil {
		return err
	}
	if _, err := bot.Request(tgbotapi.NewSetMyCommands(botCommands...)); err != nil {
		a.logger.Warn("Failed to set bot commands", zap.Error(err))
	}

	source := a.source()
	subs := store.NewSubscriberStore(db)
	scheduler := a.newScheduler(source, l, subs, bot)
	handler := newBotHandler(bot, source, subs, a.formatter(), a.logger.Named("bot"))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.Run(ctx)
	}()

	if a.cfg.StatusAddr != "" {
		srv := &http.Server{
			Addr: a.cfg.StatusAddr,
			Handler: newStatusRouter(func(ctx context.Context) error {
				return store.Ping(ctx, db)
			}, l, a.logger.Named("status")),
			ReadHeaderTimeout: 5 * time.Second,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveStatus(ctx, srv, a.logger)
		}()
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)
	handler.Run(ctx, updates)

	a.logger.Info("Shutting down")
	bot.StopReceivingUpdates()
	wg.Wait()
	return nil
}

func checkCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run a single notification check",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(func(ctx context.Context, a *app) error {
				if dryRun {
					return checkDryRun(ctx, a)
				}
				return checkOnce(ctx, a)
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only print each upcoming match's window, send nothing")
	return cmd
}

func checkOnce(ctx context.Context, a *app) error {
	db, err := store.Open(a.cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close(db)
	l, closeLedger, err := a.openLedger(ctx, db)
	if err != nil {
		return err
	}
	defer closeLedger()
	bot, err := a.newBot()
	if err != nil {
		return err
	}

	report := a.newScheduler(a.source(), l, store.NewSubscriberStore(db), bot).Tick(ctx)
	fmt.Printf("fetched=%d due=%d sent=%d recipients=%d pending=%d missed=%d already_notified=%d errors=%d\n",
		report.Fetched, report.Due, report.Sent, report.Recipients,
		report.Pending, report.Missed, report.AlreadyNotified, report.Errors)
	return nil
}

func checkDryRun(ctx context.Context, a *app) error {
	db, err := store.Open(a.cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close(db)
	l, closeLedger, err := a.openLedger(ctx, db)
	if err != nil {
		return err
	}
	defer closeLedger()

	now := time.Now()
	policy := league.Policy{NotificationHours: a.cfg.NotificationHours}
	games := a.source().UpcomingGames(ctx, now)
	if len(games) == 0 {
		fmt.Println("No upcoming matches")
		return nil
	}

	loc := a.cfg.Location()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKICKOFF\tHOURS\tWINDOW\tNOTIFIED\tTEAMS")
	for _, g := range games {
		notified, err := l.HasNotified(ctx, g.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d\t%s\t%.2f\t%s\t%t\t%s vs %s\n",
			g.ID, g.ScheduledAt.In(loc).Format("02.01.2006 15:04"), league.HoursUntil(g.Match, now),
			policy.Classify(g.Match, now), notified, g.TeamA.Name, g.TeamB.Name)
	}
	return w.Flush()
}

func upcomingCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "Print upcoming matches",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(func(ctx context.Context, a *app) error {
				now := time.Now()
				games := a.source().UpcomingGames(ctx, now)
				if limit > 0 && len(games) > limit {
					games = games[:limit]
				}
				loc := a.cfg.Location()
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tKICKOFF\tIN\tLOCATION\tTEAMS")
				for _, g := range games {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s vs %s\n",
						g.ID, g.ScheduledAt.In(loc).Format("02.01.2006 15:04"),
						g.ScheduledAt.Sub(now).Round(time.Minute), g.Location, g.TeamA.Name, g.TeamB.Name)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of matches, 0 for all")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a config file with default values",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configFilePath()
			if err := writeDefaultConfig(path); err != nil {
				return err
			}
			fmt.Printf("created default config file %v\n", path)
			return nil
		},
	})
	return cmd
}
