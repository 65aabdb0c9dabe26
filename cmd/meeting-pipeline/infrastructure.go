// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/redis/go-redis/v9"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/infrastructure/calendar"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/infrastructure/chat"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/infrastructure/llm"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/infrastructure/lock"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/infrastructure/messaging"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/infrastructure/speech"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/infrastructure/store"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/pkg/constants"
)

// repositories are the NATS-backed stores of the pipeline.
type repositories struct {
	Meeting        *store.NatsMeetingRepository
	Transcript     *store.NatsTranscriptRepository
	ActionItem     *store.NatsActionItemRepository
	IntegrationLog *store.NatsIntegrationLogRepository
	User           *store.NatsUserRepository
	Recording      *store.NatsRecordingStore
}

// collaborators are the external services the stages call.
type collaborators struct {
	SpeechToText domain.SpeechToText
	LLMExtractor domain.LLMExtractor
	ChatNotifier domain.ChatNotifier
	// Calendar is nil when calendar reminders are disabled.
	Calendar domain.CalendarService
}

// setupNATS connects to NATS. The connection decrements gracefulCloseWG once
// it is closed during shutdown; an unexpected close terminates the process.
func setupNATS(ctx context.Context, env environment, gracefulCloseWG *sync.WaitGroup, done chan os.Signal) (*nats.Conn, error) {
	slog.With("nats_url", env.NatsURL).Info("attempting to connect to NATS")

	gracefulCloseWG.Add(1)
	natsConn, err := nats.Connect(
		env.NatsURL,
		nats.Name("meeting-pipeline"),
		nats.DrainTimeout(constants.GracefulShutdownSeconds*time.Second),
		nats.ConnectHandler(func(_ *nats.Conn) {
			slog.With("nats_url", env.NatsURL).Info("NATS connection established")
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			slog.With("nats_url", conn.ConnectedUrl()).Warn("NATS connection re-established")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, s *nats.Subscription, err error) {
			if s != nil {
				slog.With(logging.ErrKey, err, "subject", s.Subject, "queue", s.Queue).Error("async NATS error")
			} else {
				slog.With(logging.ErrKey, err).Error("async NATS error outside subscription")
			}
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if ctx.Err() != nil {
				// The parent context is already cancelled, so this is a graceful shutdown.
				gracefulCloseWG.Done()
				return
			}
			// Otherwise max reconnect attempts have been exhausted.
			slog.Error("NATS max-reconnects exhausted; connection closed", logging.PriorityCritical())
			done <- os.Interrupt
			time.Sleep(5 * time.Second)
			os.Exit(1)
		}),
	)
	if err != nil {
		gracefulCloseWG.Done()
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return natsConn, nil
}

// getKeyValueStores binds the repositories to their JetStream buckets. The
// buckets are provisioned with the deployment; a missing bucket is an error.
func getKeyValueStores(ctx context.Context, js jetstream.JetStream) (*repositories, error) {
	kv := make(map[string]jetstream.KeyValue)
	for _, bucket := range []string{
		store.KVStoreNameMeetings,
		store.KVStoreNameTranscripts,
		store.KVStoreNameActionItems,
		store.KVStoreNameIntegrationLogs,
		store.KVStoreNameUsers,
		store.KVStoreNameUserIntegrations,
	} {
		kvStore, err := js.KeyValue(ctx, bucket)
		if err != nil {
			return nil, fmt.Errorf("get key-value store %q: %w", bucket, err)
		}
		kv[bucket] = kvStore
	}

	recordings, err := js.ObjectStore(ctx, store.ObjectStoreNameRecordings)
	if err != nil {
		return nil, fmt.Errorf("get object store %q: %w", store.ObjectStoreNameRecordings, err)
	}

	return &repositories{
		Meeting:        store.NewNatsMeetingRepository(kv[store.KVStoreNameMeetings]),
		Transcript:     store.NewNatsTranscriptRepository(kv[store.KVStoreNameTranscripts]),
		ActionItem:     store.NewNatsActionItemRepository(kv[store.KVStoreNameActionItems]),
		IntegrationLog: store.NewNatsIntegrationLogRepository(kv[store.KVStoreNameIntegrationLogs]),
		User:           store.NewNatsUserRepository(kv[store.KVStoreNameUsers], kv[store.KVStoreNameUserIntegrations]),
		Recording:      store.NewNatsRecordingStore(recordings),
	}, nil
}

// setupJobQueue ensures the job stream and returns a queue that both
// publishes and consumes jobs.
func setupJobQueue(ctx context.Context, js jetstream.JetStream) (*messaging.NatsJobQueue, error) {
	consumer, err := messaging.EnsureJobStream(ctx, js, constants.JobAckWait)
	if err != nil {
		return nil, err
	}
	return messaging.NewNatsJobQueue(js, consumer), nil
}

// setupLocker returns a Redis-backed meeting locker when REDIS_ADDR is set,
// otherwise a process-local one. The returned client is nil for the local locker.
func setupLocker(ctx context.Context, env environment) (domain.MeetingLocker, *redis.Client, error) {
	if env.RedisAddr == "" {
		slog.Warn("REDIS_ADDR not set, meeting locks are local to this process")
		return lock.NewLocalLocker(), nil, nil
	}

	client := redis.NewClient(&redis.Options{Addr: env.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	slog.With("redis_addr", env.RedisAddr).Info("using redis meeting locks")
	return lock.NewRedisLocker(client, constants.MeetingLockTTL), client, nil
}

// setupCollaborators builds the external service clients.
func setupCollaborators(ctx context.Context, env environment) (*collaborators, error) {
	timeout := env.Pipeline.ExternalCallTimeout

	if env.Whisper.APIKey == "" {
		return nil, errors.New("WHISPER_API_KEY environment variable is required but not set")
	}
	if env.Gemini.APIKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable is required but not set")
	}

	geminiClient, err := llm.NewGeminiClient(ctx, env.Gemini.APIKey)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	c := &collaborators{
		SpeechToText: speech.NewWhisperClient(speech.Config{
			APIKey:  env.Whisper.APIKey,
			BaseURL: env.Whisper.BaseURL,
			Model:   env.Whisper.Model,
			Timeout: timeout,
		}),
		LLMExtractor: llm.NewGeminiExtractor(geminiClient.Models, env.Gemini.Model),
		ChatNotifier: chat.NewSlackNotifier(chat.Config{
			APIURL:  env.SlackAPIURL,
			Timeout: timeout,
		}),
	}

	if env.Google.ClientID == "" {
		slog.Warn("GOOGLE_CLIENT_ID not set, calendar reminders are disabled")
		return c, nil
	}
	c.Calendar = calendar.NewGoogleCalendar(calendar.Config{
		ClientID:     env.Google.ClientID,
		ClientSecret: env.Google.ClientSecret,
		Timeout:      timeout,
	})

	return c, nil
}
