// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/logging"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// NatsRecordingStore resolves recording references against a NATS Object Store.
// The reference is the object name written by the upload collaborator.
type NatsRecordingStore struct {
	objectStore INatsObjectStore
}

// NewNatsRecordingStore creates a new recording store
func NewNatsRecordingStore(objectStore INatsObjectStore) *NatsRecordingStore {
	return &NatsRecordingStore{objectStore: objectStore}
}

// IsReady checks if the object store is available
func (s *NatsRecordingStore) IsReady() bool {
	return s.objectStore != nil
}

// OpenRecording opens the recording for reading. The caller must close the body.
func (s *NatsRecordingStore) OpenRecording(ctx context.Context, recordingRef string) (*domain.Recording, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "nats.object.get",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "nats"),
			attribute.String("db.operation", "get"),
			attribute.String("db.nats.object", recordingRef),
		),
	)
	defer span.End()

	if !s.IsReady() {
		err := domain.NewUnavailableError("recording store is not available")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result, err := s.objectStore.Get(ctx, recordingRef)
	if err != nil {
		if errors.Is(err, jetstream.ErrObjectNotFound) {
			err = domain.NewNotFoundError(fmt.Sprintf("recording '%s' not found", recordingRef), err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "not found")
			return nil, err
		}
		slog.ErrorContext(ctx, "error getting recording from NATS object store",
			logging.ErrKey, err, "recording_ref", recordingRef)
		err = domain.NewUnavailableError("failed to open recording", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	recording := &domain.Recording{Name: recordingRef, Body: result}
	if info, infoErr := result.Info(); infoErr == nil && info != nil {
		recording.Size = info.Size
		if info.Headers != nil {
			recording.ContentType = info.Headers.Get("Content-Type")
		}
		if info.Name != "" {
			recording.Name = info.Name
		}
	}

	span.SetAttributes(attribute.Int64("db.nats.object_size", int64(recording.Size)))
	span.SetStatus(codes.Ok, "")
	return recording, nil
}
