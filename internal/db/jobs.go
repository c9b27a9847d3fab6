package db

import (
	"context"

	"github.com/google/uuid"

	"github.com/kepler-social/kepler/internal/domain"
)

type Jobs interface {
	CreateJob(ctx context.Context, job domain.Job) error
	JobByID(ctx context.Context, id uuid.UUID) (domain.Job, error)
	// UpdateJob is last-writer-wins; concurrent workers racing on the same
	// job are tolerated through handler idempotency, not prevented here.
	UpdateJob(ctx context.Context, job domain.Job) error
}
