package federation

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kepler-social/kepler/internal/apub"
	"github.com/kepler-social/kepler/internal/db"
	"github.com/kepler-social/kepler/internal/domain"
)

func (d *Dispatcher) processNote(ctx context.Context, kind apub.ActivityType, activity, note apub.Object, actor domain.User, visibility domain.Visibility) (FederateResult, error) {
	switch kind {
	case apub.ActivityCreate:
		return FederateResult{}, d.createNote(ctx, note, actor, visibility, uuid.Nil)
	case apub.ActivityUpdate:
		return FederateResult{}, d.updateNote(ctx, note, visibility)
	case apub.ActivityLike:
		return FederateResult{}, d.likeNote(ctx, activity, note, actor)
	case apub.ActivityRemove, apub.ActivityDelete:
		return FederateResult{}, d.removeNote(ctx, activity, note, actor)
	default:
		return FederateResult{}, d.unimplemented(apub.ObjectNote, kind)
	}
}

// createNote stores the post and fans it out to the author's local
// followers. Redelivery of an already stored note is acknowledged silently.
func (d *Dispatcher) createNote(ctx context.Context, note apub.Object, actor domain.User, visibility domain.Visibility, orbitID uuid.UUID) error {
	if visibility == domain.VisibilityUnknown {
		return fmt.Errorf("%w: activity carries no usable addressing", ErrInvalidData)
	}

	apID, err := url.Parse(note.ID)
	if err != nil || note.ID == "" {
		return fmt.Errorf("%w: note id %q", ErrInvalidData, note.ID)
	}

	if _, err = d.store.PostByIRI(ctx, apID); err == nil {
		log.Debug().Str("note", note.ID).Msg("note already stored, skipping")
		return nil
	} else if !errors.Is(err, db.ErrNotFound) {
		return err
	}

	now := time.Now()
	post := domain.Post{
		ID:         uuid.New(),
		ApID:       apID,
		AuthorID:   actor.ID,
		OrbitID:    orbitID,
		Content:    note.Content,
		MediaType:  note.MediaType,
		Visibility: visibility,
		Published:  now,
		Updated:    now,
	}
	if note.Sensitive != nil {
		post.Sensitive = *note.Sensitive
	}
	if note.Published != nil {
		post.Published = *note.Published
	}

	if err = d.store.CreatePost(ctx, post); err != nil {
		return err
	}

	var recipients []domain.User
	if post.InOrbit() {
		recipients, err = d.store.LocalMembers(ctx, orbitID)
	} else {
		recipients, err = d.store.FollowersOf(ctx, actor.ID)
	}
	if err != nil {
		return err
	}
	d.producer.Fanout(ctx, "post.created", post.ID, actor.ID, localOnly(recipients), apub.Document{}, actor.ApID)
	return nil
}

func (d *Dispatcher) updateNote(ctx context.Context, note apub.Object, visibility domain.Visibility) error {
	if visibility == domain.VisibilityUnknown {
		return fmt.Errorf("%w: activity carries no usable addressing", ErrInvalidData)
	}

	apID, err := url.Parse(note.ID)
	if err != nil || note.ID == "" {
		return fmt.Errorf("%w: note id %q", ErrInvalidData, note.ID)
	}

	post, err := d.store.PostByIRI(ctx, apID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("%w: update for unknown note %s", ErrMissingRecord, note.ID)
		}
		return err
	}

	post.Content = note.Content
	if note.MediaType != "" {
		post.MediaType = note.MediaType
	}
	if note.Sensitive != nil {
		post.Sensitive = *note.Sensitive
	}
	post.Visibility = visibility
	post.Updated = time.Now()
	return d.store.UpdatePost(ctx, post)
}

func (d *Dispatcher) likeNote(ctx context.Context, activity, note apub.Object, actor domain.User) error {
	apID, err := url.Parse(note.ID)
	if err != nil || note.ID == "" {
		return fmt.Errorf("%w: note id %q", ErrInvalidData, note.ID)
	}

	post, err := d.store.PostByIRI(ctx, apID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("%w: like for unknown note %s", ErrMissingRecord, note.ID)
		}
		return err
	}

	like := domain.Like{
		ID:      uuid.New(),
		UserID:  actor.ID,
		PostID:  post.ID,
		Created: time.Now(),
	}
	like.ApID, _ = url.Parse(activity.ID)
	_, err = d.store.CreateLike(ctx, like)
	return err
}

// removeNote distinguishes an unlike from a deletion by the activity's
// target: a target inside the note naming its likes collection undoes the
// actor's like, anything else tears the note down.
func (d *Dispatcher) removeNote(ctx context.Context, activity, note apub.Object, actor domain.User) error {
	apID, err := url.Parse(note.ID)
	if err != nil || note.ID == "" {
		return fmt.Errorf("%w: note id %q", ErrInvalidData, note.ID)
	}

	if target := d.deref.ResolveURI(activity.Target); target != nil && isLikesCollection(target, note.ID) {
		post, err := d.store.PostByIRI(ctx, apID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return nil
			}
			return err
		}
		if err = d.store.DeleteLike(ctx, actor.ID, post.ID); err != nil && !errors.Is(err, db.ErrNotFound) {
			return err
		}
		return nil
	}

	return d.deleteObject(ctx, apID)
}

func isLikesCollection(target *url.URL, noteID string) bool {
	t := target.String()
	return strings.HasPrefix(t, noteID) && strings.HasSuffix(strings.TrimSuffix(t, "/"), "/likes")
}

func localOnly(users []domain.User) []domain.User {
	out := users[:0:0]
	for _, u := range users {
		if u.Local {
			out = append(out, u)
		}
	}
	return out
}
