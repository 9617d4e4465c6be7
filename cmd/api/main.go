package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/appollohealth/clinic-voice-agent/internal/agent"
	"github.com/appollohealth/clinic-voice-agent/internal/api/router"
	appconfig "github.com/appollohealth/clinic-voice-agent/internal/config"
	"github.com/appollohealth/clinic-voice-agent/internal/directory"
	"github.com/appollohealth/clinic-voice-agent/internal/observability/metrics"
	"github.com/appollohealth/clinic-voice-agent/internal/session"
	"github.com/appollohealth/clinic-voice-agent/internal/voice"
	"github.com/appollohealth/clinic-voice-agent/pkg/logging"
)

func main() {
	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-voice-agent API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	// Session and checkpoint stores: in-process by default, Redis when the
	// deployment runs more than one replica.
	var (
		sessions    session.Store
		checkpoints agent.Checkpointer
	)
	if cfg.UseRedisStores {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Error("failed to connect to redis", "error", err, "addr", cfg.RedisAddr)
			os.Exit(1)
		}
		sessions = session.NewRedisStore(rdb)
		checkpoints = agent.NewRedisCheckpointer(rdb)
		logger.Info("using redis-backed session and checkpoint stores", "addr", cfg.RedisAddr)
	} else {
		sessions = session.NewMemoryStore()
		checkpoints = agent.NewMemoryCheckpointer()
	}

	customers := directory.NewSeededCustomerStore()
	appointments := directory.NewSeededAppointmentStore()

	registry := prometheus.NewRegistry()
	voiceMetrics := metrics.NewVoiceMetrics(registry)

	llm, err := agent.NewOpenAIClient(agent.OpenAIConfig{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		Model:      cfg.OpenAIModel,
		MaxRetries: cfg.LLMMaxRetries,
		Timeout:    cfg.LLMTimeout,
	}, logger.Component("llm"))
	if err != nil {
		logger.Error("failed to initialize llm client", "error", err)
		os.Exit(1)
	}

	tools := agent.NewToolset(appointments, agent.ToolsetConfig{
		RequireAuth: cfg.RequireAuth,
		Timezone:    cfg.BookingTimezone,
		Observer:    voiceMetrics,
	}, logger.Component("tools"))
	graph := agent.NewGraph(llm, tools, agent.GraphConfig{StepLimit: cfg.GraphStepLimit}, logger.Component("graph"))

	relay := voice.NewRelay(customers, graph, checkpoints, voice.RelayConfig{
		WelcomeGreeting: cfg.WelcomeGreeting,
		Branding: agent.Branding{
			Name:    cfg.AgentName,
			Persona: cfg.AgentPersona,
			Tone:    cfg.AgentTone,
		},
	}, voiceMetrics, logger.Component("relay"))

	voiceHandler := voice.NewHandler(sessions, relay, voice.HandlerConfig{
		WebSocketURL:    cfg.WebSocketURL(),
		WelcomeGreeting: cfg.WelcomeGreeting,
		Voice:           cfg.RelayVoice,
	}, voiceMetrics, logger.Component("voice"))

	r := router.New(&router.Config{
		Logger:         logger,
		VoiceHandler:   voiceHandler,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "websocket_url", cfg.WebSocketURL())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
