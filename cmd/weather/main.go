// Command weather fetches current or forecast weather for one location,
// prints it as JSON and stores it. The report subcommand runs the analytics.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/neexbeast/weather-insights/internal/config"
	"github.com/neexbeast/weather-insights/internal/lock"
	"github.com/neexbeast/weather-insights/internal/report"
	"github.com/neexbeast/weather-insights/internal/storage"
	"github.com/neexbeast/weather-insights/internal/weather"
	"github.com/neexbeast/weather-insights/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "err", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			log.Error("weather command failed", "err", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger, args []string, out io.Writer) error {
	if len(args) > 0 && args[0] == "report" {
		return runReport(ctx, cfg, log, args[1:], out)
	}
	return runFetch(ctx, cfg, log, args, out)
}

func runFetch(ctx context.Context, cfg *config.Config, log *slog.Logger, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("weather", flag.ContinueOnError)
	kind := fs.String("type", "", "type of API call (current/forecast)")
	zip := fs.String("us_zip", "", "US zip code")
	city := fs.String("city", "", "city")
	aqi := fs.Bool("get_aqi", false, "get air quality")
	noAQI := fs.Bool("no-get_aqi", false, "do not get air quality")
	days := fs.Int("days", 1, "number of days to return forecast for")
	hour := fs.Int("hour", 0, "hour to return forecast for (0-23)")
	displayOnly := fs.Bool("display_only", false, "only display the data, do not save it")
	if err := fs.Parse(args); err != nil {
		return err
	}

	k, err := weather.ParseKind(*kind)
	if err != nil {
		return err
	}
	if err := cfg.Require("WEATHER_API_KEY"); err != nil {
		return err
	}

	req := weather.Request{
		City:       *city,
		USZip:      *zip,
		AirQuality: *aqi && !*noAQI,
	}
	if k == weather.KindForecast {
		req.Days = *days
		if flagSet(fs, "hour") {
			req.Hour = hour
		}
	}

	log.Info("requesting weather data", "type", k, "city", req.City, "us_zip", req.USZip,
		"aqi", req.AirQuality, "days", req.Days, "display_only", *displayOnly)

	client := weather.NewClientWithURL(cfg.WeatherAPIURL, cfg.WeatherAPIKey).
		WithRateLimit(cfg.WeatherAPIRPS, cfg.WeatherAPIBurst)
	snap, err := weather.NewFetcher(client).Fetch(ctx, k, req)
	if err != nil {
		return err
	}

	if err := printJSON(out, snap); err != nil {
		return err
	}
	if *displayOnly {
		return nil
	}

	repo, closeDB, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeDB()

	loc, err := repo.SaveSnapshot(ctx, snap)
	if err != nil {
		return err
	}
	log.Info("snapshot saved", "type", k, "location", loc.Name, "location_id", loc.ID)
	return nil
}

func runReport(ctx context.Context, cfg *config.Config, log *slog.Logger, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: report name required (hottest-hour, second-most-humid, lowest-average-swing, widest-swing-day)", weather.ErrInvalidInput)
	}
	name := args[0]

	fs := flag.NewFlagSet("weather report "+name, flag.ContinueOnError)
	city := fs.String("city", "", "city to report on")
	days := fs.Int("days", 7, "forecast horizon in days")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	if err := cfg.Require("WEATHER_API_KEY"); err != nil {
		return err
	}

	repo, closeDB, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeDB()

	client := weather.NewClientWithURL(cfg.WeatherAPIURL, cfg.WeatherAPIKey).
		WithRateLimit(cfg.WeatherAPIRPS, cfg.WeatherAPIBurst)
	svc := report.NewService(repo, weather.NewFetcher(client), lock.NewLocal(), log).
		WithConcurrency(cfg.BackfillConcurrency)

	var res any
	switch name {
	case "hottest-hour":
		res, err = svc.HottestHour(ctx, *city, *days)
	case "second-most-humid":
		res, err = svc.SecondMostHumidCity(ctx)
	case "lowest-average-swing":
		res, err = svc.LowestAverageSwing(ctx, *days)
	case "widest-swing-day":
		res, err = svc.WidestSwingDay(ctx, *city)
	default:
		return fmt.Errorf("%w: unknown report %q", weather.ErrInvalidInput, name)
	}
	if err != nil {
		return err
	}
	return printJSON(out, res)
}

// openStore connects to Postgres and applies the embedded migrations.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (*storage.Repository, func(), error) {
	if err := cfg.Require("DATABASE_URL"); err != nil {
		return nil, nil, err
	}

	pool, err := storage.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := storage.RunMigrations(ctx, pool, migrations.FS); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Debug("database ready")

	return storage.NewRepository(pool), pool.Close, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}

// flagSet reports whether name was passed on the command line.
func flagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
