package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AaronLay10/QuestForge/internal/api"
	"github.com/AaronLay10/QuestForge/internal/config"
	"github.com/AaronLay10/QuestForge/internal/editor"
	"github.com/AaronLay10/QuestForge/internal/events"
	"github.com/AaronLay10/QuestForge/internal/logger"
	"github.com/AaronLay10/QuestForge/internal/mqtt"
	"github.com/AaronLay10/QuestForge/internal/rules"
	"github.com/AaronLay10/QuestForge/internal/storage/files"
	"github.com/AaronLay10/QuestForge/internal/storage/postgres"
	"github.com/AaronLay10/QuestForge/internal/storage/sqlite"
	"github.com/AaronLay10/QuestForge/internal/validation"
	"github.com/AaronLay10/QuestForge/internal/version"
)

func main() {
	configPath := flag.String("config", "editor.yaml", "path to editor config")
	devMode := flag.Bool("dev", false, "enable development mode (CORS headers)")
	flag.Parse()

	cfg, err := config.LoadEditorConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.File)
	slog.Info("quest editor starting", "version", version.Version, "editor", cfg.Editor.ID)

	quests, err := files.NewQuestRepository(cfg.QuestsDir())
	if err != nil {
		slog.Error("failed to open quest storage", "error", err)
		os.Exit(1)
	}
	refData, err := files.NewReferenceRepository(cfg.ReferenceDir())
	if err != nil {
		slog.Error("failed to open reference data", "error", err)
		os.Exit(1)
	}
	metadata, err := sqlite.OpenMetadataStore(cfg.MetadataDB())
	if err != nil {
		slog.Error("failed to open metadata store", "error", err)
		os.Exit(1)
	}
	defer metadata.Close()

	var validator validation.Validator
	if cfg.Validation.URL != "" {
		validator = validation.NewClient(cfg.Validation.URL)
		slog.Info("using external validation service", "url", cfg.Validation.URL)
	} else {
		validator = rules.NewValidator(refData)
	}

	// Audit trail is optional. The editor keeps working when Postgres is
	// unavailable; events stay in the in-memory ring buffer.
	if cfg.Storage.AuditTrail {
		pg, err := postgres.New(cfg.Editor.ID)
		if err != nil {
			slog.Warn("audit trail unavailable", "error", err)
			api.SetPostgresConnected(false)
		} else {
			events.SetPostgresClient(pg)
			api.SetPostgresConnected(true)
			defer pg.Close()
		}
	}

	var notifier *mqtt.Notifier
	if cfg.Network.MQTTURL != "" {
		client := mqtt.NewClient("questforge-"+cfg.Editor.ID, cfg.Network.MQTTURL)
		if client.StartWithRetry() {
			api.SetMQTTConnected(true)
			defer client.Disconnect()
		}
		notifier = mqtt.NewNotifier(client, cfg.Editor.ID)

		// Paho reconnects on its own; mirror the live state into metrics.
		go func() {
			ticker := time.NewTicker(10 * time.Second)
			defer ticker.Stop()
			for range ticker.C {
				api.SetMQTTConnected(client.IsConnected())
			}
		}()
	}

	api.InitAuth()
	api.InitTLS()
	api.InitMetrics()
	api.SetEditorName(cfg.Editor.Name)
	api.InitAlerts()
	api.StartAlertMonitor(10 * time.Second)

	settle := cfg.Settle()
	if settle <= 0 {
		settle = editor.DefaultSettle
	}

	server := api.NewServer(quests, refData, metadata, validator, notifier, settle, *devMode)

	hostname, _ := os.Hostname()
	events.Emit("info", "system.startup", "quest editor starting", events.Event{
		Fields: map[string]interface{}{
			"hostname": hostname,
			"version":  version.Version,
			"editor":   cfg.Editor.ID,
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.ListenAndServe(ctx, cfg.APIPort()); err != nil {
		slog.Error("api server failed", "error", err)
		os.Exit(1)
	}

	events.Emit("info", "system.shutdown", "quest editor stopping", events.Event{})
	slog.Info("quest editor stopped")
}
