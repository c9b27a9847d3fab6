package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kepler-social/kepler/internal/db"
	"github.com/kepler-social/kepler/internal/domain"
)

type Handler func(ctx context.Context, qj QueueJob) error

// Worker drives the per-message lifecycle: decode, mark in progress, run the
// handler, settle. It is the only mutator of Job rows. Retry policy lives
// here and nowhere else; handlers must be idempotent because at-least-once
// delivery means they will see duplicates.
type Worker struct {
	backend     Backend
	jobs        db.Jobs
	handlers    map[JobType]Handler
	maxFailures int
	permanent   func(error) bool
}

// NewWorker builds a worker with the given retry ceiling. The permanent
// predicate classifies handler errors: permanent failures are terminal for
// the message, everything else is retried up to the ceiling.
func NewWorker(backend Backend, jobs db.Jobs, maxFailures int, permanent func(error) bool) *Worker {
	if permanent == nil {
		permanent = func(error) bool { return false }
	}
	return &Worker{
		backend:     backend,
		jobs:        jobs,
		handlers:    make(map[JobType]Handler),
		maxFailures: maxFailures,
		permanent:   permanent,
	}
}

func (w *Worker) Register(t JobType, h Handler) {
	w.handlers[t] = h
}

// Run consumes until the context is cancelled or the transport closes.
func (w *Worker) Run(ctx context.Context) error {
	deliveries, err := w.backend.Consume(ctx)
	if err != nil {
		return err
	}
	log.Info().Msg("worker loop started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, open := <-deliveries:
			if !open {
				log.Info().Msg("transport closed, worker loop stopping")
				return nil
			}
			w.process(ctx, d)
		}
	}
}

func (w *Worker) process(ctx context.Context, d Delivery) {
	var qj QueueJob
	if err := json.Unmarshal(d.Body, &qj); err != nil {
		log.Error().Err(err).Msg("poison message: envelope does not decode")
		w.settle(d, false, false)
		return
	}

	job, err := w.jobs.JobByID(ctx, qj.ID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			log.Error().Stringer("job", qj.ID).Msg("queued message has no job row")
			w.settle(d, false, false)
		} else {
			log.Error().Err(err).Stringer("job", qj.ID).Msg("job lookup failed")
			w.settle(d, false, true)
		}
		return
	}

	job.Status = domain.JobInProgress
	job.Updated = time.Now()
	if err = w.jobs.UpdateJob(ctx, job); err != nil {
		log.Error().Err(err).Stringer("job", job.ID).Msg("could not mark job in progress")
		w.settle(d, false, true)
		return
	}

	handler, known := w.handlers[qj.Type]
	if !known {
		// Unknown type and field combinations fail closed.
		w.fail(ctx, d, job, fmt.Errorf("%w: unregistered job type %d", ErrBadPayload, qj.Type))
		return
	}

	if err = handler(ctx, qj); err != nil {
		w.fail(ctx, d, job, err)
		return
	}

	job.Status = domain.JobDone
	job.Updated = time.Now()
	if err = w.jobs.UpdateJob(ctx, job); err != nil {
		log.Error().Err(err).Stringer("job", job.ID).Msg("could not record completion")
		w.settle(d, false, true)
		return
	}
	w.settle(d, true, false)
}

func (w *Worker) fail(ctx context.Context, d Delivery, job domain.Job, cause error) {
	event := log.Error().Err(cause).Stringer("job", job.ID).Int("failed_count", job.FailedCount)

	if w.permanent(cause) || errors.Is(cause, ErrBadPayload) {
		job.Status = domain.JobFailed
		job.FailedCount++
		job.Updated = time.Now()
		if err := w.jobs.UpdateJob(ctx, job); err != nil {
			log.Error().Err(err).Stringer("job", job.ID).Msg("could not record permanent failure")
		}
		event.Msg("permanent failure, not retrying")
		w.settle(d, true, false)
		return
	}

	if job.FailedCount < w.maxFailures {
		job.Status = domain.JobFailed
		job.FailedCount++
		job.Updated = time.Now()
		if err := w.jobs.UpdateJob(ctx, job); err != nil {
			// A store that cannot record the failure must not drive an
			// infinite requeue loop.
			log.Error().Err(err).Stringer("job", job.ID).Msg("could not record failure, dead-lettering")
			w.settle(d, false, false)
			return
		}
		event.Msg("transient failure, requeueing")
		w.settle(d, false, true)
		return
	}

	job.Status = domain.JobFailed
	job.Updated = time.Now()
	if err := w.jobs.UpdateJob(ctx, job); err != nil {
		log.Error().Err(err).Stringer("job", job.ID).Msg("could not record dead-letter")
	}
	event.Msg("retry ceiling reached, dead-lettering")
	w.settle(d, false, false)
}

func (w *Worker) settle(d Delivery, ack, requeue bool) {
	var err error
	if ack {
		err = w.backend.Ack(d)
	} else {
		err = w.backend.Nack(d, requeue)
	}
	if err != nil {
		log.Error().Err(err).Bool("ack", ack).Bool("requeue", requeue).Msg("failed to settle message")
	}
}
