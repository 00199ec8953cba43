package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"presence_monitor"
	"presence_monitor/internal/engine"
	"presence_monitor/internal/handlers"
	"presence_monitor/internal/logger"
	"presence_monitor/internal/metrics"
	"presence_monitor/internal/notify"
	"presence_monitor/internal/repository"
	"presence_monitor/internal/server"
	"presence_monitor/internal/service"

	"github.com/spf13/viper"
)

func main() {
	// init logger
	log := logger.Get(logger.InfoLevel)

	// load config.yml
	if err := loadConfig(); err != nil {
		log.Fatalw("error reading config", "err", err)
	}

	// open DB
	db, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Fatalw("failed to close sqlite", "err", cerr)
		}
	}()

	// wire dependencies: explicit constructors, lifecycle owned here
	repos := repository.NewRepository(db)
	m := metrics.New()
	services, err := service.NewService(service.Deps{
		Repos:    repos,
		Channels: buildChannels(log),
		Metrics:  m,
		Log:      log,
		Engine:   engineConfig(),
	})
	if err != nil {
		log.Fatalw("failed to build services", "err", err)
	}
	apiHandler := handlers.NewHandler(services, m, log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// dispatch worker: drains the alert queue so the producer never blocks
	go services.Monitor.Run(ctx)

	// schedule checker on its own minute clock
	go services.Checker.Run(ctx, viper.GetDuration("schedule.tick"))

	// synthetic producer (until a capture device feeds real snapshots)
	if viper.GetBool("simulator.enabled") {
		go services.Simulator.Run(ctx, viper.GetDuration("simulator.tick"))
	}

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)
}

func loadConfig() error {
	viper.SetDefault("port", "8080")
	viper.SetDefault("db.path", "presence.db")
	viper.SetDefault("engine.debounce_frames", engine.DefaultDebounceFrames)
	viper.SetDefault("engine.max_delta", engine.DefaultMaxDelta)
	viper.SetDefault("engine.queue_size", 16)
	viper.SetDefault("thresholds.absence_limit_seconds", 300.0)
	viper.SetDefault("thresholds.device_use_limit_seconds", 1800.0)
	viper.SetDefault("alerts.dispatch_timeout", notify.DefaultSendTimeout)
	viper.SetDefault("alerts.cooldown.absence", engine.DefaultAbsenceCooldown)
	viper.SetDefault("alerts.cooldown.device_use", engine.DefaultDeviceUseCooldown)
	viper.SetDefault("alerts.cooldown.default", engine.DefaultScheduleCooldown)
	viper.SetDefault("schedule.tick", time.Minute)
	viper.SetDefault("schedule.refresh", 5*time.Minute)
	viper.SetDefault("simulator.enabled", true)
	viper.SetDefault("simulator.tick", 100*time.Millisecond)
	viper.SetDefault("channels.console", true)

	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	if err := viper.ReadInConfig(); err != nil {
		// Missing config file is fine: defaults cover everything.
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// engineConfig maps viper keys onto the engine tunables.
func engineConfig() service.EngineConfig {
	return service.EngineConfig{
		Stabilizer: engine.StabilizerConfig{
			DebounceFrames: viper.GetInt("engine.debounce_frames"),
			MaxDelta:       viper.GetDuration("engine.max_delta"),
		},
		Thresholds: engine.ThresholdConfig{
			AbsenceLimitSeconds:   viper.GetFloat64("thresholds.absence_limit_seconds"),
			DeviceUseLimitSeconds: viper.GetFloat64("thresholds.device_use_limit_seconds"),
		},
		Cooldowns: map[presence_monitor.AlertKind]time.Duration{
			presence_monitor.KindAbsence:   viper.GetDuration("alerts.cooldown.absence"),
			presence_monitor.KindDeviceUse: viper.GetDuration("alerts.cooldown.device_use"),
		},
		DefaultCooldown: viper.GetDuration("alerts.cooldown.default"),
		DispatchTimeout: viper.GetDuration("alerts.dispatch_timeout"),
		QueueSize:       viper.GetInt("engine.queue_size"),
		ScheduleRefresh: viper.GetDuration("schedule.refresh"),
	}
}

// buildChannels assembles the configured notification transports.
func buildChannels(log *logger.Logger) []notify.Channel {
	var channels []notify.Channel

	if viper.GetBool("channels.console") {
		channels = append(channels, notify.NewConsoleChannel(log))
	}

	var hooks []struct {
		ID  string `mapstructure:"id"`
		URL string `mapstructure:"url"`
	}
	if err := viper.UnmarshalKey("channels.webhooks", &hooks); err != nil {
		log.Errorw("invalid channels.webhooks config", "err", err)
	}
	for _, hk := range hooks {
		channels = append(channels, notify.NewWebhookChannel(notify.ChannelID(hk.ID), hk.URL, nil))
	}

	var cmds []struct {
		ID   string   `mapstructure:"id"`
		Name string   `mapstructure:"name"`
		Args []string `mapstructure:"args"`
	}
	if err := viper.UnmarshalKey("channels.commands", &cmds); err != nil {
		log.Errorw("invalid channels.commands config", "err", err)
	}
	for _, cm := range cmds {
		channels = append(channels, notify.NewCommandChannel(notify.ChannelID(cm.ID), cm.Name, cm.Args...))
	}

	return channels
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "presence.db")
		dbPath = "presence.db"
	}
	return repository.InitDB(dbPath)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down...")

	// stop background goroutines; in-flight dispatches finish on their own timeouts
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
