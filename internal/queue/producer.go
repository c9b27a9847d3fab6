package queue

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kepler-social/kepler/internal/apub"
	"github.com/kepler-social/kepler/internal/db"
	"github.com/kepler-social/kepler/internal/domain"
	"github.com/kepler-social/kepler/internal/signature"
)

// Producer creates Job rows and publishes their QueueJob envelopes. The
// worker loop is the sole consumer; anything may produce.
type Producer struct {
	backend Backend
	jobs    db.Jobs
}

func NewProducer(backend Backend, jobs db.Jobs) *Producer {
	return &Producer{
		backend: backend,
		jobs:    jobs,
	}
}

// Enqueue persists the job lifecycle row, then publishes the envelope. The
// row must exist before the message: a consumer may pull the message
// immediately.
func (p *Producer) Enqueue(ctx context.Context, qj QueueJob, record, associated, createdBy uuid.UUID) error {
	if qj.ID == uuid.Nil {
		qj.ID = uuid.New()
	}

	now := time.Now()
	job := domain.Job{
		ID:                 qj.ID,
		RecordID:           record,
		AssociatedRecordID: associated,
		CreatedByID:        createdBy,
		Status:             domain.JobNotStarted,
		Created:            now,
		Updated:            now,
	}
	if err := p.jobs.CreateJob(ctx, job); err != nil {
		return err
	}

	body, err := json.Marshal(qj)
	if err != nil {
		return err
	}
	return p.backend.Publish(ctx, body)
}

// EnqueueFederate queues an unparsed inbound document together with its
// captured signing context.
func (p *Producer) EnqueueFederate(ctx context.Context, payload []byte, origin *signature.OriginContext, originHost string) error {
	qj := QueueJob{
		ID:         uuid.New(),
		Type:       FederateActivityPub,
		Payload:    payload,
		Origin:     origin,
		OriginHost: originHost,
	}
	return p.Enqueue(ctx, qj, uuid.Nil, uuid.Nil, uuid.Nil)
}

// EnqueueDelivery queues an outbound document for one remote inbox, signed
// as the given actor.
func (p *Producer) EnqueueDelivery(ctx context.Context, doc apub.Document, inbox, from *url.URL, record uuid.UUID) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(DeliveryPayload{
		Inbox:    inbox.String(),
		Actor:    from.String(),
		Document: raw,
	})
	if err != nil {
		return err
	}

	qj := QueueJob{
		ID:      uuid.New(),
		Type:    DeliverActivity,
		Payload: payload,
		Context: []string{from.String()},
	}
	return p.Enqueue(ctx, qj, record, uuid.Nil, uuid.Nil)
}

// Fanout expands one domain event into one job per recipient: remote
// recipients get a signed delivery, local ones a fan-out event. A failed
// enqueue for one recipient never blocks the others; the blast radius of a
// bad recipient is exactly that recipient.
func (p *Producer) Fanout(ctx context.Context, event string, record, createdBy uuid.UUID, recipients []domain.User, doc apub.Document, from *url.URL) {
	for _, recipient := range recipients {
		var err error
		if recipient.Local {
			var payload []byte
			payload, err = json.Marshal(FanoutPayload{
				RecordID:    record,
				RecipientID: recipient.ID,
				Event:       event,
			})
			if err == nil {
				qj := QueueJob{
					ID:      uuid.New(),
					Type:    FanoutEvent,
					Payload: payload,
				}
				err = p.Enqueue(ctx, qj, record, recipient.ID, createdBy)
			}
		} else if recipient.Inbox != nil {
			err = p.EnqueueDelivery(ctx, doc, recipient.Inbox, from, record)
		} else {
			log.Warn().Str("recipient", recipient.Username).Msg("remote recipient without a known inbox")
			continue
		}

		if err != nil {
			log.Error().Err(err).
				Stringer("recipient", recipient.ID).
				Msg("failed to enqueue fan-out job")
		}
	}
}
