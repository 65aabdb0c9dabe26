// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/worker"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/pkg/constants"
)

// natsMessage adapts a core NATS message to [domain.Message].
type natsMessage struct {
	msg *nats.Msg
}

var _ domain.Message = (*natsMessage)(nil)

func (m *natsMessage) Subject() string { return m.msg.Subject }

func (m *natsMessage) Data() []byte { return m.msg.Data }

func (m *natsMessage) Respond(data []byte) error { return m.msg.Respond(data) }

func (m *natsMessage) HasReply() bool { return m.msg.Reply != "" }

// createNatsSubcriptions subscribes the handler to every pipeline trigger subject.
func createNatsSubcriptions(ctx context.Context, handler domain.MessageHandler, natsConn *nats.Conn) error {
	for _, subject := range models.PipelineTriggerSubjects {
		slog.With("subject", subject, "queue", models.PipelineQueue).Info("subscribing to NATS subject")
		_, err := natsConn.QueueSubscribe(subject, models.PipelineQueue, func(msg *nats.Msg) {
			handler.HandleMessage(ctx, &natsMessage{msg: msg})
		})
		if err != nil {
			return fmt.Errorf("subscribe to %s: %w", subject, err)
		}
	}
	return nil
}

// gracefulShutdown stops accepting work, lets in-flight jobs finish and
// closes the connections within the shutdown budget.
func gracefulShutdown(
	httpServer *http.Server,
	pool *worker.Pool,
	natsConn *nats.Conn,
	gracefulCloseWG *sync.WaitGroup,
	cancel context.CancelFunc,
	closers ...func(context.Context) error,
) {
	slog.With("timeout_seconds", constants.GracefulShutdownSeconds).Info("received shutdown signal, stopping servers")

	ctx, cancelTimeout := context.WithTimeout(context.Background(), constants.GracefulShutdownSeconds*time.Second)
	defer cancelTimeout()

	if err := pool.Shutdown(ctx); err != nil {
		slog.With(logging.ErrKey, err).Warn("worker pool did not drain before the shutdown deadline")
	}

	// Cancelling the parent context marks the NATS close as graceful.
	cancel()

	go func() {
		if err := httpServer.Shutdown(ctx); err != nil {
			slog.With(logging.ErrKey, err).Error("http shutdown error")
		}
		gracefulCloseWG.Done()
	}()

	if !natsConn.IsClosed() && !natsConn.IsDraining() {
		slog.Info("draining NATS connections")
		if err := natsConn.Drain(); err != nil {
			slog.With(logging.ErrKey, err).Error("error draining NATS connection")
		}
	}

	gracefulCloseWG.Wait()

	for _, closer := range closers {
		if err := closer(ctx); err != nil {
			slog.With(logging.ErrKey, err).Error("error during shutdown")
		}
	}
	slog.Info("graceful shutdown complete")
}
