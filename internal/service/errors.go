package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ping-me/internal/apperr"
	"ping-me/internal/models"
	"ping-me/internal/repositories"
)

var tracer = otel.Tracer("ping-me/service")

// Publisher pushes an event to the live connections of an audience.
type Publisher interface {
	Publish(ctx context.Context, event models.Event, audience []string, excluding ...string) int
}

// classify maps repository failures onto the error taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, repositories.ErrGroupNotFound):
		return apperr.ErrGroupNotFound
	case errors.Is(err, repositories.ErrMessageNotFound):
		return apperr.ErrMessageNotFound
	case errors.Is(err, repositories.ErrUserNotFound):
		return apperr.ErrUserNotFound
	case errors.Is(err, repositories.ErrInvalidMessage):
		return apperr.ErrInvalidInput.WithMessage(err.Error())
	default:
		return apperr.Storage(err)
	}
}

func uploadFailed(err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperr.ErrMediaUpload.Wrap(err)
}

// fail records err on span and returns it.
func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(apperr.KindOf(err)))
	return err
}
