package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"schedcal/internal/backup"
	"schedcal/internal/config"
	"schedcal/internal/datekit"
	"schedcal/internal/export"
	appLog "schedcal/internal/log"
	"schedcal/internal/model"
	"schedcal/internal/store"
	"schedcal/internal/web"
)

func main() {
	// Load .env first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "schedcal",
		Usage: "Month-grid event calendar with a web UI, JSON store, and export feeds.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: "./schedcal.yaml",
				Usage: "Path to the YAML config file (created on first run).",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "Log level: debug, info, warn, error.",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			addCommand(),
			listCommand(),
			exportCommand(),
			snapshotCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		appLog.Error("schedcal failed", err)
		os.Exit(1)
	}
}

// loadConfig applies the global flags and loads the effective configuration.
func loadConfig(c *cli.Context) (*config.Config, error) {
	applyLogLevel(c.String("log-level"))

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", c.String("config"), err)
	}
	cfg.ApplyEnv()
	return cfg, nil
}

func applyLogLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		appLog.SetLevel(appLog.LevelDebug)
	case "warn":
		appLog.SetLevel(appLog.LevelWarn)
	case "error":
		appLog.SetLevel(appLog.LevelError)
	default:
		appLog.SetLevel(appLog.LevelInfo)
	}
}

func resolveLocation(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the calendar web server until interrupted.",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			appLog.Info("effective config",
				"listen", cfg.Listen,
				"timezone", cfg.Timezone,
				"store_path", cfg.StorePath,
				"backup_dir", cfg.BackupDir,
				"backup_cron", cfg.BackupCron,
				"basic_auth", cfg.BasicAuth != nil,
			)

			st := store.Open(cfg.StorePath)

			sched := backup.NewScheduler(cfg.StorePath, cfg.BackupDir)
			if err := sched.Start(cfg.BackupCron); err != nil {
				return err
			}
			defer sched.Stop()

			// Root context with cancellation on SIGINT/SIGTERM.
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				sig := <-sigCh
				appLog.Info("signal received, shutting down", "signal", sig.String())
				cancel()
			}()

			if err := web.StartServer(ctx, cfg, st); err != nil {
				return err
			}
			appLog.Info("schedcal exiting")
			return nil
		},
	}
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Add an event to the store without going through the web UI.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "date", Usage: "Event date as YYYY-MM-DD (default: today)."},
			&cli.StringFlag{Name: "time", Usage: "Event time as HH:MM (default: the configured default time)."},
			&cli.StringFlag{Name: "title", Required: true, Usage: "Event title."},
			&cli.StringFlag{Name: "notes", Usage: "Optional notes."},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			loc := resolveLocation(cfg.Timezone)

			key := c.String("date")
			if key == "" {
				key = datekit.Today(loc).Key()
			}
			if _, err := datekit.ParseKey(key); err != nil {
				return err
			}

			clockInput := c.String("time")
			if clockInput == "" {
				clockInput = cfg.DefaultEventTime
			}
			clock, err := model.NormalizeClock(clockInput)
			if err != nil {
				return fmt.Errorf("invalid --time %q: %w", clockInput, err)
			}

			title := strings.TrimSpace(c.String("title"))
			if title == "" {
				return fmt.Errorf("--title must not be blank")
			}

			st := store.Open(cfg.StorePath)
			ev := st.Add(key, model.Draft{
				Title: title,
				Time:  clock,
				Notes: c.String("notes"),
			})
			fmt.Printf("added %s  %s %s  %s\n", ev.ID, key, ev.Time, ev.Title)
			return nil
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "Print the events of a day, or a whole month with --month.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "date", Usage: "Day as YYYY-MM-DD (default: today)."},
			&cli.BoolFlag{Name: "month", Usage: "List the entire month containing --date."},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			loc := resolveLocation(cfg.Timezone)

			key := c.String("date")
			if key == "" {
				key = datekit.Today(loc).Key()
			}
			if _, err := datekit.ParseKey(key); err != nil {
				return err
			}

			st := store.Open(cfg.StorePath)

			if !c.Bool("month") {
				printDay(c.App.Writer, key, st.EventsOn(key))
				return nil
			}

			// Canonical keys make the month a simple prefix.
			prefix := key[:len("2006-01")]
			for _, k := range st.Keys() {
				if strings.HasPrefix(k, prefix) {
					printDay(c.App.Writer, k, st.EventsOn(k))
				}
			}
			return nil
		},
	}
}

func printDay(w io.Writer, key string, events []model.Event) {
	if len(events) == 0 {
		fmt.Fprintf(w, "%s  (no events)\n", key)
		return
	}
	for _, ev := range events {
		line := fmt.Sprintf("%s  %s  %s", key, ev.Time, ev.Title)
		if ev.Notes != "" {
			line += "  (" + ev.Notes + ")"
		}
		fmt.Fprintln(w, line)
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write the full collection as ICS, CSV, or JSON.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Value: "ics", Usage: "Output format: ics, csv, json."},
			&cli.StringFlag{Name: "out", Usage: "Output file (default: stdout)."},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			st := store.Open(cfg.StorePath)

			var w io.Writer = os.Stdout
			if out := c.String("out"); out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %q: %w", out, err)
				}
				defer f.Close()
				w = f
			}

			switch strings.ToLower(c.String("format")) {
			case "ics":
				return export.ICS(w, st.Snapshot(), cfg.CalendarName, resolveLocation(cfg.Timezone))
			case "csv":
				return export.CSV(w, st.Snapshot())
			case "json":
				return export.JSON(w, st.Snapshot())
			default:
				return fmt.Errorf("unknown format %q (want ics, csv, or json)", c.String("format"))
			}
		},
	}
}

func snapshotCommand() *cli.Command {
	return &cli.Command{
		Name:  "snapshot",
		Usage: "Copy the store file into the backup directory now.",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			path, err := backup.Snapshot(cfg.StorePath, cfg.BackupDir)
			if err != nil {
				return err
			}
			if path == "" {
				fmt.Println("nothing to back up yet")
				return nil
			}
			fmt.Println(path)
			return nil
		},
	}
}
