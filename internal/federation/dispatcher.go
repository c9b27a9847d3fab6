// The federation package turns authenticated inbound documents into local
// state changes and, where the protocol demands it, response activities.
package federation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kepler-social/kepler/internal/apub"
	"github.com/kepler-social/kepler/internal/config"
	"github.com/kepler-social/kepler/internal/db"
	"github.com/kepler-social/kepler/internal/domain"
	"github.com/kepler-social/kepler/internal/queue"
	"github.com/kepler-social/kepler/internal/signature"
)

// Dispatcher routes inbound activities by (object type, activity type). It
// performs no transport I/O of its own: fetching goes through the
// dereferencer, responses and fan-out through the producer.
type Dispatcher struct {
	store     db.DB
	deref     *apub.Dereferencer
	producer  *queue.Producer
	deliverer queue.Deliverer
	cfg       *config.Configuration
}

func New(store db.DB, deref *apub.Dereferencer, producer *queue.Producer, deliverer queue.Deliverer, cfg *config.Configuration) *Dispatcher {
	return &Dispatcher{
		store:     store,
		deref:     deref,
		producer:  producer,
		deliverer: deliverer,
		cfg:       cfg,
	}
}

// Federate processes one inbound document end to end: authenticate the
// actor, resolve the object, dispatch on the type pair, send any response the
// handler owes. Errors wrapping one of this package's sentinels are permanent;
// everything else may be retried by the caller.
func (d *Dispatcher) Federate(ctx context.Context, doc apub.Document, origin *signature.OriginContext) error {
	activity := doc.Object

	kind, ok := activity.ActivityType()
	if !ok {
		// Some peers deliver bare Tombstones instead of Delete activities.
		if ot, isObject := activity.ObjectType(); isObject && ot == apub.ObjectTombstone {
			return d.processTombstone(ctx, activity)
		}
		return fmt.Errorf("%w: unrecognized activity type %q", ErrInvalidData, activity.Type)
	}

	actor, err := d.federateActor(ctx, activity.Actor)
	if err != nil {
		return err
	}

	if !d.cfg.InsecureFederation && !signature.Verify(origin, actor.PublicKey) {
		return fmt.Errorf("%w: actor %s", ErrUnauthorized, actor.ApID)
	}

	visibility := activityVisibility(activity, actor)

	object := d.deref.Resolve(ctx, activity.Object)
	if object == nil {
		return fmt.Errorf("%w: activity %s has no resolvable object", ErrInvalidData, activity.ID)
	}
	ot, ok := object.ObjectType()
	if !ok {
		return fmt.Errorf("%w: unrecognized object type %q", ErrInvalidData, object.Type)
	}

	var result FederateResult
	switch ot {
	case apub.ObjectNote:
		result, err = d.processNote(ctx, kind, activity, *object, actor, visibility)
	case apub.ObjectArticle:
		result, err = d.processArticle(ctx, kind, activity, *object, actor, visibility)
	case apub.ObjectPerson:
		result, err = d.processPerson(ctx, kind, activity, *object, actor)
	case apub.ObjectGroup:
		result, err = d.processGroup(ctx, kind, activity, *object, actor)
	case apub.ObjectTombstone:
		return d.processTombstone(ctx, *object)
	default:
		return d.unimplemented(ot, kind)
	}
	if err != nil {
		return err
	}

	return d.respond(ctx, result, doc, actor)
}

// FederateHandler adapts the dispatcher to the worker loop: the payload is
// the raw inbound document, the envelope carries its captured signing context.
func (d *Dispatcher) FederateHandler() queue.Handler {
	return func(ctx context.Context, qj queue.QueueJob) error {
		doc, err := apub.Parse(qj.Payload)
		if err != nil {
			return err
		}
		return d.Federate(ctx, doc, qj.Origin)
	}
}

// unimplemented records the combination and acknowledges it. Unknown verbs
// from well-behaved peers are routine, failing the message would only make
// them redeliver it.
func (d *Dispatcher) unimplemented(ot apub.ObjectType, kind apub.ActivityType) error {
	log.Debug().
		Str("object_type", ot.String()).
		Str("activity_type", kind.String()).
		Msg("no handler for this activity, dropping")
	return nil
}

// respond synthesizes the owed response activity, addressed to the origin
// actor and signed with the responder's own key. Delivery is direct rather
// than queued: the signing key never touches the job transport.
func (d *Dispatcher) respond(ctx context.Context, result FederateResult, original apub.Document, origin domain.User) error {
	kind, ok := result.Kind.activityType()
	if !ok {
		return nil
	}
	if origin.Inbox == nil {
		return fmt.Errorf("%w: origin actor %s has no inbox", ErrInvalidData, origin.ApID)
	}

	id := result.ActorIRI.JoinPath("activities", uuid.NewString())
	response := apub.NewResponse(kind, id, result.ActorIRI, origin.ApID, original.Object)

	err := d.deliverer.Deliver(ctx, apub.NewDocument(response), origin.Inbox, result.ActorIRI, result.PrivateKey)
	if err != nil {
		return fmt.Errorf("failed to deliver %s to %s: %w", kind, origin.Inbox, err)
	}
	log.Debug().
		Str("response", kind.String()).
		Stringer("to", origin.Inbox).
		Msg("response activity delivered")
	return nil
}
