package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/chiwei-platform/executor-k8s/internal/adapter/http"
	"github.com/chiwei-platform/executor-k8s/internal/adapter/kubernetes"
	"github.com/chiwei-platform/executor-k8s/internal/adapter/loki"
	"github.com/chiwei-platform/executor-k8s/internal/adapter/repository"
	"github.com/chiwei-platform/executor-k8s/internal/config"
	"github.com/chiwei-platform/executor-k8s/internal/manifest"
	"github.com/chiwei-platform/executor-k8s/internal/observability"
	"github.com/chiwei-platform/executor-k8s/internal/port"
	"github.com/chiwei-platform/executor-k8s/internal/service"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(observability.NewLogger("executor-k8s", cfg.LogLevel))
	metrics := observability.NewMetrics(nil)

	// Job 模板只在启动时加载一次
	renderer, err := manifest.Load(cfg.TemplatePath, cfg.TemplatePath == config.DefaultTemplatePath)
	if err != nil {
		slog.Error("failed to load job template", "path", cfg.TemplatePath, "error", err)
		os.Exit(1)
	}

	executor, err := kubernetes.NewExecutor(kubernetes.ExecutorConfig{
		Token:         cfg.K8sToken,
		TokenPath:     cfg.K8sTokenPath,
		Host:          cfg.K8sHost,
		JobsNamespace: cfg.JobsNamespace,
		Renderer:      renderer,
		TransportConfig: kubernetes.TransportConfig{
			VerifyTLS: !cfg.InsecureSkipVerify,
			Timeout:   cfg.RequestTimeout,
			Retries:   cfg.TransportRetries,
			Breaker: kubernetes.BreakerConfig{
				MaxFailures: uint32(cfg.BreakerMaxFailures),
				Interval:    cfg.BreakerInterval,
				Timeout:     cfg.BreakerTimeout,
			},
			Metrics: metrics,
			Logger:  slog.Default(),
		},
	})
	if err != nil {
		slog.Error("failed to create executor", "error", err)
		os.Exit(1)
	}

	// 执行记录（可选，未配置数据库时不落库）
	var execRepo port.ExecutionRepository
	if cfg.DatabaseURL != "" {
		db, err := repository.OpenDB(cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to open db", "error", err)
			os.Exit(1)
		}
		execRepo = repository.NewExecutionRepo(db)
	} else {
		slog.Warn("DATABASE_URL not set, execution history disabled")
	}

	var logQuerier port.LogQuerier
	if cfg.LokiURL != "" {
		logQuerier = loki.NewClient(cfg.LokiURL)
	}

	svc := service.NewExecutionService(executor, execRepo, logQuerier, metrics, cfg.JobsNamespace)

	handler := httpadapter.NewRouter(
		httpadapter.NewBuildHandler(svc),
		observability.MetricsHandler(),
		cfg.APIToken,
	)

	// 不设置 WriteTimeout，日志流是长连接
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "k8s_host", cfg.K8sHost, "namespace", cfg.JobsNamespace)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
}
