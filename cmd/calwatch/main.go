package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gosuri/uitable"
	"github.com/robfig/cron/v3"

	"calwatch/internal/clock"
	"calwatch/internal/config"
	"calwatch/internal/engine"
	"calwatch/internal/gateway"
	"calwatch/internal/gcal"
	"calwatch/internal/ics"
	appLog "calwatch/internal/log"
	"calwatch/internal/notify"
	"calwatch/internal/present"
	"calwatch/internal/timeline"
)

type flagConfig struct {
	configPath string
	once       bool
	debug      bool
}

func main() {
	appLog.Info("calwatch starting", "version", "0.1.0")

	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	loc, err := time.LoadLocation(conf.Timezone)
	if err != nil {
		appLog.Error("invalid timezone, falling back to local", err, "timezone", conf.Timezone)
		loc = time.Local
	}

	appLog.Info("effective config",
		"timezone", conf.Timezone,
		"gateway", conf.Gateway,
		"refresh", conf.RefreshCron,
		"max_events", conf.MaxEventsDisplay,
		"warning_minutes", conf.WarningMinutes,
		"dismiss_timeout_seconds", conf.DismissTimeoutSeconds,
		"once", flags.once,
	)

	gw, err := buildGateway(conf)
	if err != nil {
		appLog.Error("failed to build calendar gateway", err)
		os.Exit(1)
	}

	clk := clock.NewReal()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if flags.once {
		if err := runOnce(ctx, gw, loc, conf.MaxEventsDisplay, clk); err != nil {
			appLog.Error("one-shot fetch failed", err)
			os.Exit(1)
		}
		return
	}

	tl := timeline.New(conf.MaxEventsDisplay)
	rules := notify.NewRuleEngine(conf.WarningMinutes, conf.DedupCeiling)
	presenter := present.NewConsole()
	sched := notify.NewScheduler(presenter, time.Duration(conf.DismissTimeoutSeconds)*time.Second)

	eng := engine.New(engine.Config{
		Location:   loc,
		MaxEvents:  conf.MaxEventsDisplay,
		StatusTick: time.Duration(conf.StatusTickSeconds) * time.Second,
		RuleTick:   time.Duration(conf.RuleCheckSeconds) * time.Second,
		DrainTick:  time.Duration(conf.DrainTickSeconds) * time.Second,
	}, gw, clk, tl, rules, sched)

	// Periodic refresh is cron-driven; the engine performs the first
	// fetch immediately on Run.
	c := cron.New()
	if _, err := c.AddFunc(conf.RefreshCron, eng.RequestRefresh); err != nil {
		appLog.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	c.Start()
	defer c.Stop()

	// Manual dismissal: an input line dismisses the active alert.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			eng.DismissActive()
		}
	}()

	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		appLog.Error("engine stopped", err)
		os.Exit(1)
	}

	appLog.Info("calwatch exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", defaultConfigPath(), "Path to config file")
	flag.BoolVar(&cfg.once, "once", false, "Fetch today's events once, print them, and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}

func defaultConfigPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home + "/.config/calwatch/config.yaml"
	}
	return "/etc/calwatch/config.yaml"
}

func buildGateway(conf *config.Config) (gateway.Source, error) {
	switch conf.Gateway {
	case config.GatewayICS:
		feeds := make([]ics.Feed, 0, len(conf.ICS))
		for _, src := range conf.ICS {
			if src.URL == "" {
				continue
			}
			id := src.ID
			if id == "" {
				id = src.Name
			}
			if id == "" {
				id = src.URL
			}
			feeds = append(feeds, ics.Feed{
				ID:    id,
				Label: src.Name,
				URL:   src.URL,
				Color: src.Color,
			})
		}
		return ics.NewClient(feeds), nil

	default:
		token := os.Getenv(conf.Google.TokenEnv)
		if token == "" {
			return nil, errors.New("no access token in $" + conf.Google.TokenEnv)
		}
		return gcal.NewClient(conf.Google.Endpoint, gcal.StaticToken(token)), nil
	}
}

// runOnce fetches the current day synchronously and prints an event table.
func runOnce(ctx context.Context, gw gateway.Source, loc *time.Location, maxEvents int, clk clock.Clock) error {
	events, err := engine.FetchDay(ctx, gw, loc, maxEvents, clk.Now())
	if err != nil {
		return err
	}

	tl := timeline.New(maxEvents)
	tl.Replace(events, clk.Now())

	table := uitable.New()
	table.AddRow("TIME", "TITLE", "LOCATION", "CALENDAR", "STATUS")
	for _, ev := range tl.Events() {
		table.AddRow(ev.DisplayTime, ev.Title, ev.Location, ev.CalendarLabel, ev.Status.String())
	}
	os.Stdout.WriteString(table.String() + "\n")

	if mins, ok := tl.MinutesUntilNext(clk.Now()); ok {
		appLog.Info("next event", "minutes_until", mins)
	}
	return nil
}
