package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mingunkim123/ledger-agent/internal/config"
	"github.com/mingunkim123/ledger-agent/internal/handlers"
	"github.com/mingunkim123/ledger-agent/internal/llm"
	"github.com/mingunkim123/ledger-agent/internal/orchestrator"
	"github.com/mingunkim123/ledger-agent/internal/repository"
	"github.com/mingunkim123/ledger-agent/internal/services"
	"github.com/mingunkim123/ledger-agent/internal/undo"
	xhttp "github.com/mingunkim123/ledger-agent/pkg/http"
	"github.com/mingunkim123/ledger-agent/pkg/logger"
	"github.com/mingunkim123/ledger-agent/pkg/pg"
	"github.com/mingunkim123/ledger-agent/pkg/prom"
	"github.com/mingunkim123/ledger-agent/pkg/redis"
)

func main() {
	cfg, err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	// transport (tcp for now)
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 60))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

	readConf := pg.Config{
		User:     cfg.PostgresReadUser,
		Host:     cfg.PostgresReadHost,
		Port:     cfg.PostgresReadPort,
		Password: cfg.PostgresReadPassword,
		Database: cfg.PostgresReadDB,
	}
	writeConf := pg.Config{
		User:     cfg.PostgresWriteUser,
		Host:     cfg.PostgresWriteHost,
		Port:     cfg.PostgresWritePort,
		Password: cfg.PostgresWritePassword,
		Database: cfg.PostgresWriteDB,
	}

	pgDebug := cfg.AppEnv == "development"
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", cfg.AppName+":", &redis.Options{
		Addrs:    []string{cfg.RedisHost + ":" + cfg.RedisPort},
		DB:       cfg.RedisDB,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	if cfg.PromEnabled {
		host, _ := os.Hostname()
		if err := prom.Create(host, cfg.AppEnv, cfg.PromNamespace); err != nil {
			logger.Error("failed creating metrics", "error", err)
			return
		}
		go prom.ListenAndServer(":"+cfg.PromPort, "/metrics")
	}

	txRepo := repository.NewTransactionRepository(db)
	idemRepo := repository.NewIdempotencyRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	undoStore := undo.NewStore(redisAdap, time.Duration(cfg.UndoTTLSeconds)*time.Second)

	// services
	llmClient := llm.NewClient(cfg)
	extractor := orchestrator.New(llmClient)
	txService := services.NewTransactionService(txRepo, idemRepo, auditRepo, undoStore, cfg.DefaultCurrency)
	chatService := services.NewChatService(extractor, txService)

	// v1 handlers
	txHandler := handlers.NewTransactionHandler(chatService, txService)
	healthHandler := handlers.NewHealthHandler(nil)

	g := s.Router.Group("/api/v1")
	handlers.RegisterTransactionRoutes(g, txHandler)
	handlers.RegisterHealthRoutes(g, healthHandler)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		var err = s.ListenAndServe(":" + cfg.HttpServerPort)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()
	logger.Info("ledger api listening", "port", cfg.HttpServerPort, "provider", cfg.LLMProvider)

	<-c
	s.Shutdown()
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
