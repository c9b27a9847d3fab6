package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/kepler-social/kepler/internal/apub"
	"github.com/kepler-social/kepler/internal/db"
)

// Deliverer posts a signed document to a remote inbox.
type Deliverer interface {
	Deliver(ctx context.Context, doc apub.Document, inbox *url.URL, from *url.URL, privateKeyPem string) error
}

// DeliveryHandler resolves the sending actor's key and performs the outbound
// POST. Remote shadow users carry no key, so a missing key falls back to the
// instance key inside the client.
func DeliveryHandler(users db.Users, deliverer Deliverer) Handler {
	return func(ctx context.Context, qj QueueJob) error {
		var payload DeliveryPayload
		if err := json.Unmarshal(qj.Payload, &payload); err != nil {
			return fmt.Errorf("%w: %v", ErrBadPayload, err)
		}

		inbox, err := url.Parse(payload.Inbox)
		if err != nil {
			return fmt.Errorf("%w: inbox %q", ErrBadPayload, payload.Inbox)
		}
		from, err := url.Parse(payload.Actor)
		if err != nil {
			return fmt.Errorf("%w: actor %q", ErrBadPayload, payload.Actor)
		}
		doc, err := apub.Parse(payload.Document)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBadPayload, err)
		}

		key, err := users.PrivateKeyByIRI(ctx, from)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			return err
		}

		return deliverer.Deliver(ctx, doc, inbox, from, key)
	}
}

// EventHandler acknowledges local fan-out events. Surfacing them to
// timelines and notification streams belongs to the host application; the
// engine's contract ends at reliable per-recipient dispatch.
func EventHandler() Handler {
	return func(ctx context.Context, qj QueueJob) error {
		var payload FanoutPayload
		if err := json.Unmarshal(qj.Payload, &payload); err != nil {
			return fmt.Errorf("%w: %v", ErrBadPayload, err)
		}

		log.Debug().
			Str("event", payload.Event).
			Stringer("record", payload.RecordID).
			Stringer("recipient", payload.RecipientID).
			Msg("local fan-out event dispatched")
		return nil
	}
}
