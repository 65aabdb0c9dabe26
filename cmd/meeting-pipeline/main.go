// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package main is the meeting pipeline service. It turns uploaded meeting
// recordings into transcripts, summaries and notified action items.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/redis/go-redis/v9"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/handlers"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/infrastructure/messaging"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/observability"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/worker"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/pkg/utils"
)

func main() {
	env := parseEnv()
	flags := parseFlags(env.Port)

	logging.InitStructureLogConfig()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	gracefulCloseWG := sync.WaitGroup{}

	otelShutdown, err := utils.SetupOTelSDK(ctx)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up OpenTelemetry")
		return
	}
	closers := []func(context.Context) error{otelShutdown}

	clients, err := setupCollaborators(ctx, env)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up external collaborators")
		return
	}

	locker, redisClient, err := setupLocker(ctx, env)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up meeting locker")
		return
	}
	if redisClient != nil {
		closers = append(closers, closeRedis(redisClient))
	}

	// Setup NATS connection
	natsConn, err := setupNATS(ctx, env, &gracefulCloseWG, done)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up NATS")
		return
	}

	js, err := jetstream.New(natsConn)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error creating JetStream context")
		return
	}

	// Get the key-value stores for the service.
	repos, err := getKeyValueStores(ctx, js)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error getting key-value stores")
		return
	}

	jobQueue, err := setupJobQueue(ctx, js)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up job queue")
		return
	}

	// Initialize services
	serviceConfig := service.ServiceConfig{
		ExternalCallTimeout:     env.Pipeline.ExternalCallTimeout,
		NotificationConcurrency: env.Pipeline.NotificationConcurrency,
		LFXEnvironment:          env.LFXEnvironment,
		LFXAppOrigin:            env.LFXAppOrigin,
	}
	metrics := observability.DefaultPipelineMetrics()
	messageBuilder := messaging.NewMessageBuilder(natsConn)
	integrationLog := service.NewIntegrationLogService(repos.IntegrationLog, metrics)

	transcriptionStage := service.NewTranscriptionStage(
		repos.Recording,
		clients.SpeechToText,
		repos.Transcript,
		integrationLog,
		serviceConfig,
	)
	extractionStage := service.NewExtractionStage(
		repos.Transcript,
		repos.ActionItem,
		repos.User,
		clients.LLMExtractor,
		integrationLog,
		serviceConfig,
	)
	notificationStage := service.NewNotificationStage(
		repos.ActionItem,
		repos.User,
		clients.ChatNotifier,
		clients.Calendar,
		integrationLog,
		serviceConfig,
	)
	coordinator := service.NewPipelineCoordinator(
		repos.Meeting,
		locker,
		messageBuilder,
		metrics,
		transcriptionStage,
		extractionStage,
		notificationStage,
	)

	retryPolicy := service.DefaultRetryPolicy()
	retryPolicy.MaxAttempts = env.Pipeline.MaxAttempts
	retryPolicy.InitialBackoff = env.Pipeline.InitialBackoff
	retryPolicy.MaxBackoff = env.Pipeline.MaxBackoff

	pool := worker.NewPool(jobQueue, coordinator, retryPolicy, env.Pipeline.Workers, metrics)
	if err := pool.Start(ctx); err != nil {
		slog.With(logging.ErrKey, err).Error("error starting worker pool")
		return
	}

	// Initialize handlers
	pipelineHandler := handlers.NewPipelineHandler(repos.Meeting, jobQueue)

	httpServer := setupHTTPServer(flags, newHTTPHandler(
		coordinator.ServiceReady,
		pipelineHandler.HandlerReady,
		natsConn.IsConnected,
	), &gracefulCloseWG)

	// Create NATS subscriptions for the service.
	err = createNatsSubcriptions(ctx, pipelineHandler, natsConn)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error creating NATS subscriptions")
		return
	}

	slog.With(
		"workers", env.Pipeline.Workers,
		"max_attempts", env.Pipeline.MaxAttempts,
		"calendar_enabled", clients.Calendar != nil,
	).Info("meeting pipeline started")

	// This next line blocks until SIGINT or SIGTERM is received.
	<-done

	gracefulShutdown(httpServer, pool, natsConn, &gracefulCloseWG, cancel, closers...)
}

func closeRedis(client *redis.Client) func(context.Context) error {
	return func(context.Context) error {
		return client.Close()
	}
}
