package federation

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/kepler-social/kepler/internal/apub"
	"github.com/kepler-social/kepler/internal/db"
)

// processTombstone routes a deletion by the dead object's identifier alone.
// For identifiers minted by this server the id encodes what it was, so the
// relationship stores are probed in turn; a remote identifier can only be a
// post or an actor shadow. Deletion is best effort: a tombstone for
// something never stored is acknowledged, not failed.
func (d *Dispatcher) processTombstone(ctx context.Context, tombstone apub.Object) error {
	iri, err := url.Parse(tombstone.ID)
	if err != nil || tombstone.ID == "" {
		return fmt.Errorf("%w: tombstone id %q", ErrInvalidData, tombstone.ID)
	}

	if iri.Host == d.cfg.Domain {
		removals := []struct {
			name string
			fn   func(context.Context, *url.URL) error
		}{
			{"follow", d.store.DeleteFollowByIRI},
			{"membership", d.store.RemoveMemberByIRI},
			{"like", d.store.DeleteLikeByIRI},
		}
		for _, removal := range removals {
			err = removal.fn(ctx, iri)
			if err == nil {
				log.Debug().
					Str("kind", removal.name).
					Stringer("iri", iri).
					Msg("tombstone resolved to a relationship removal")
				return nil
			}
			if !errors.Is(err, db.ErrNotFound) {
				return err
			}
		}
	}

	return d.deleteObject(ctx, iri)
}

// deleteObject removes whatever the identifier still names locally, posts
// first, then actor shadows. Both misses together are fine, the record may
// never have been stored or a duplicate delivery already removed it.
func (d *Dispatcher) deleteObject(ctx context.Context, iri *url.URL) error {
	if err := d.store.DeletePostByIRI(ctx, iri); err != nil && !errors.Is(err, db.ErrNotFound) {
		return err
	}
	if err := d.store.DeleteUserByIRI(ctx, iri); err != nil && !errors.Is(err, db.ErrNotFound) {
		return err
	}
	return nil
}
