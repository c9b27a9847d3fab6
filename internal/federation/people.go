package federation

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kepler-social/kepler/internal/apub"
	"github.com/kepler-social/kepler/internal/db"
	"github.com/kepler-social/kepler/internal/domain"
)

func (d *Dispatcher) processPerson(ctx context.Context, kind apub.ActivityType, activity, person apub.Object, actor domain.User) (FederateResult, error) {
	switch kind {
	case apub.ActivityFollow:
		return d.followPerson(ctx, activity, person, actor)
	case apub.ActivityRemove, apub.ActivityDelete:
		return FederateResult{}, d.removePerson(ctx, activity, person, actor)
	default:
		return FederateResult{}, d.unimplemented(apub.ObjectPerson, kind)
	}
}

func (d *Dispatcher) processGroup(ctx context.Context, kind apub.ActivityType, activity, group apub.Object, actor domain.User) (FederateResult, error) {
	switch kind {
	case apub.ActivityFollow:
		return d.followGroup(ctx, activity, group, actor)
	default:
		return FederateResult{}, d.unimplemented(apub.ObjectGroup, kind)
	}
}

// followPerson records the follow edge and owes the origin an Accept signed
// by the followee. Only local users can accept: we hold no other keys.
func (d *Dispatcher) followPerson(ctx context.Context, activity, person apub.Object, actor domain.User) (FederateResult, error) {
	followee, err := d.personByID(ctx, person.ID)
	if err != nil {
		return FederateResult{}, err
	}
	if !followee.Local {
		log.Warn().
			Stringer("followee", followee.ApID).
			Msg("received a follow for a remote user, ignoring")
		return FederateResult{}, nil
	}

	follow := domain.Follow{
		ID:         uuid.New(),
		FollowerID: actor.ID,
		FolloweeID: followee.ID,
		Created:    time.Now(),
	}
	follow.ApID, _ = url.Parse(activity.ID)
	if _, err = d.store.CreateFollow(ctx, follow); err != nil {
		return FederateResult{}, err
	}

	return accept(followee.ApID, followee.PrivateKey), nil
}

// followGroup joins the actor to a local orbit; the orbit accepts with its
// own key.
func (d *Dispatcher) followGroup(ctx context.Context, activity, group apub.Object, actor domain.User) (FederateResult, error) {
	iri, err := url.Parse(group.ID)
	if err != nil || group.ID == "" {
		return FederateResult{}, fmt.Errorf("%w: group id %q", ErrInvalidData, group.ID)
	}

	orbit, err := d.store.OrbitByIRI(ctx, iri)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return FederateResult{}, fmt.Errorf("%w: unknown orbit %s", ErrMissingRecord, group.ID)
		}
		return FederateResult{}, err
	}
	if !orbit.Local {
		log.Warn().
			Stringer("orbit", orbit.ApID).
			Msg("received a follow for a remote orbit, ignoring")
		return FederateResult{}, nil
	}

	followIRI, _ := url.Parse(activity.ID)
	if err = d.store.AddMember(ctx, orbit.ID, actor.ID, followIRI); err != nil {
		return FederateResult{}, err
	}

	return accept(orbit.ApID, orbit.PrivateKey), nil
}

// removePerson handles an actor pruning its own followers collection; any
// other target means the person object itself is being deleted, typically an
// account deletion.
func (d *Dispatcher) removePerson(ctx context.Context, activity, person apub.Object, actor domain.User) error {
	apID, err := url.Parse(person.ID)
	if err != nil || person.ID == "" {
		return fmt.Errorf("%w: person id %q", ErrInvalidData, person.ID)
	}

	target := d.deref.ResolveURI(activity.Target)
	if target != nil && actor.ApID != nil && trimCollection(target).String() == actor.ApID.String() {
		follower, err := d.store.UserByIRI(ctx, apID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return nil
			}
			return err
		}
		if err = d.store.DeleteFollow(ctx, follower.ID, actor.ID); err != nil && !errors.Is(err, db.ErrNotFound) {
			return err
		}
		return nil
	}

	return d.deleteObject(ctx, apID)
}

func (d *Dispatcher) personByID(ctx context.Context, id string) (domain.User, error) {
	iri, err := url.Parse(id)
	if err != nil || id == "" {
		return domain.User{}, fmt.Errorf("%w: person id %q", ErrInvalidData, id)
	}
	user, err := d.store.UserByIRI(ctx, iri)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return domain.User{}, fmt.Errorf("%w: unknown user %s", ErrMissingRecord, id)
		}
		return domain.User{}, err
	}
	return user, nil
}
