package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/avalonlabs/vesper/adapters/audiodev"
	"github.com/avalonlabs/vesper/adapters/genailive"
	"github.com/avalonlabs/vesper/adapters/profilestore"
	"github.com/avalonlabs/vesper/domain/entities"
	"github.com/avalonlabs/vesper/domain/repositories"
	"github.com/avalonlabs/vesper/internal/api"
	"github.com/avalonlabs/vesper/internal/audit"
	"github.com/avalonlabs/vesper/internal/auth"
	"github.com/avalonlabs/vesper/internal/monitor"
	"github.com/avalonlabs/vesper/internal/session"
	"github.com/avalonlabs/vesper/internal/websocket"
	"github.com/avalonlabs/vesper/usecase"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	apiKey := os.Getenv("GEMINI_API_KEY")

	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		secret = "vesper-dev-secret"
		logger.Warn("SESSION_SECRET not set, using development secret")
	}
	issuer, err := auth.NewIssuer(secret)
	if err != nil {
		logger.Fatal("Failed to initialize token issuer", zap.Error(err))
	}

	// System log store + UI event hub; every log entry fans out live.
	logs := audit.NewStore(audit.DefaultCapacity, logger)
	hub := websocket.NewHub(logger)
	go hub.Run()

	logs.Subscribe(func(entry entities.SystemLogEntry) {
		event, err := websocket.NewLogEvent(entry)
		if err != nil {
			logger.Error("Failed to encode log event", zap.Error(err))
			return
		}
		hub.Broadcast(event)
	})

	// Live transport: real endpoint when a key is configured, otherwise
	// the in-memory mock (Connect will refuse without a key anyway).
	var transport repositories.LiveTransport
	if apiKey != "" {
		gemini, err := genailive.NewGeminiTransport(apiKey, logger)
		if err != nil {
			logger.Fatal("Failed to initialize live transport", zap.Error(err))
		}
		if model := os.Getenv("GEMINI_LIVE_MODEL"); model != "" {
			gemini.WithModel(model)
		}
		transport = gemini
	} else {
		logger.Warn("GEMINI_API_KEY not set, voice sessions are disabled")
		transport = genailive.NewMockTransport()
	}

	// Audio device: real hardware when available, mock otherwise so the
	// rest of the shell still runs (CI, headless hosts).
	var device repositories.AudioDevice
	var closeDevice func()
	if os.Getenv("VESPER_AUDIO") == "mock" {
		device = audiodev.NewMockDevice()
	} else {
		malgoDevice, err := audiodev.NewMalgoDevice(logger)
		if err != nil {
			logger.Warn("Audio hardware unavailable, using mock device", zap.Error(err))
			device = audiodev.NewMockDevice()
		} else {
			device = malgoDevice
			closeDevice = func() {
				if err := malgoDevice.Close(); err != nil {
					logger.Warn("Error closing audio backend", zap.Error(err))
				}
			}
		}
	}

	mon := monitor.New(monitor.HostSampler{}, logs, logger)

	manager := session.NewManager(transport, device, logs, logger, session.Options{
		APIKey: apiKey,
		OnNavigate: func(view, highlight string) {
			event, err := websocket.NewNavigateEvent(view, highlight)
			if err != nil {
				logger.Error("Failed to encode navigate event", zap.Error(err))
				return
			}
			hub.Broadcast(event)
		},
		OnStateChange: func(state entities.ConnectionState) {
			event, err := websocket.NewStateEvent(state)
			if err != nil {
				logger.Error("Failed to encode state event", zap.Error(err))
				return
			}
			hub.Broadcast(event)
		},
		Scan: mon.Scan,
	})

	storePath := os.Getenv("PROFILE_STORE")
	if storePath == "" {
		storePath = "data/profiles.json"
	}
	profiles, err := profilestore.NewFileStore(storePath, logger)
	if err != nil {
		logger.Fatal("Failed to open profile store", zap.Error(err))
	}

	assistant := usecase.NewAssistantService(profiles, manager, logger)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	server := api.NewServer(assistant, issuer, logs, mon, hub, logger)
	server.InitRoutes(e)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("port", port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	assistant.Disconnect()
	if closeDevice != nil {
		closeDevice()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
