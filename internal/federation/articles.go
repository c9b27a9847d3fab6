package federation

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/kepler-social/kepler/internal/apub"
	"github.com/kepler-social/kepler/internal/db"
	"github.com/kepler-social/kepler/internal/domain"
)

// Articles are long-form posts published into an orbit; the orbit is named
// by the activity's audience.
func (d *Dispatcher) processArticle(ctx context.Context, kind apub.ActivityType, activity, article apub.Object, actor domain.User, visibility domain.Visibility) (FederateResult, error) {
	switch kind {
	case apub.ActivityCreate:
		return FederateResult{}, d.createArticle(ctx, activity, article, actor, visibility)
	case apub.ActivityUpdate:
		return FederateResult{}, d.updateNote(ctx, article, visibility)
	case apub.ActivityRemove, apub.ActivityDelete:
		return FederateResult{}, d.removeArticle(ctx, activity, article)
	default:
		return FederateResult{}, d.unimplemented(apub.ObjectArticle, kind)
	}
}

func (d *Dispatcher) createArticle(ctx context.Context, activity, article apub.Object, actor domain.User, visibility domain.Visibility) error {
	orbit, err := d.audienceOrbit(ctx, activity, article)
	if err != nil {
		return err
	}

	// Nobody here would ever see the article; storing it would only grow the
	// database on behalf of other servers.
	members, err := d.store.LocalMembers(ctx, orbit.ID)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		log.Debug().
			Str("article", article.ID).
			Stringer("orbit", orbit.ApID).
			Msg("orbit has no local members, dropping article")
		return nil
	}

	return d.createNote(ctx, article, actor, visibility, orbit.ID)
}

// removeArticle treats a target naming a known orbit as "take this article
// out of the orbit"; any other target is a plain deletion of the article.
func (d *Dispatcher) removeArticle(ctx context.Context, activity, article apub.Object) error {
	apID, err := url.Parse(article.ID)
	if err != nil || article.ID == "" {
		return fmt.Errorf("%w: article id %q", ErrInvalidData, article.ID)
	}

	if target := d.deref.ResolveURI(activity.Target); target != nil {
		if _, err = d.store.OrbitByIRI(ctx, trimCollection(target)); err == nil {
			if err = d.store.DeletePostByIRI(ctx, apID); err != nil && !errors.Is(err, db.ErrNotFound) {
				return err
			}
			return nil
		} else if !errors.Is(err, db.ErrNotFound) {
			return err
		}
	}

	return d.deleteObject(ctx, apID)
}

func (d *Dispatcher) audienceOrbit(ctx context.Context, activity, article apub.Object) (domain.Orbit, error) {
	ref := article.Audience
	if ref == nil {
		ref = activity.Audience
	}
	iri := d.deref.ResolveURI(ref)
	if iri == nil {
		return domain.Orbit{}, fmt.Errorf("%w: article %s names no audience orbit", ErrInvalidData, article.ID)
	}

	orbit, err := d.store.OrbitByIRI(ctx, iri)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return domain.Orbit{}, fmt.Errorf("%w: unknown orbit %s", ErrMissingRecord, iri)
		}
		return domain.Orbit{}, err
	}
	return orbit, nil
}

// trimCollection strips a trailing collection segment so a members or
// followers collection IRI resolves to its owning actor.
func trimCollection(iri *url.URL) *url.URL {
	trimmed := *iri
	path := strings.TrimSuffix(trimmed.Path, "/")
	for _, segment := range []string{"/members", "/followers"} {
		if strings.HasSuffix(path, segment) {
			trimmed.Path = strings.TrimSuffix(path, segment)
			return &trimmed
		}
	}
	return iri
}
