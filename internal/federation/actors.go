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

// federateActor resolves the activity's actor to a user record, creating a
// local shadow of a remote actor on first contact. An already known actor is
// returned as stored, without refetching the profile.
func (d *Dispatcher) federateActor(ctx context.Context, ref *apub.Reference) (domain.User, error) {
	if ref == nil {
		return domain.User{}, fmt.Errorf("%w: activity has no actor", ErrInvalidData)
	}

	if iri := d.deref.ResolveURI(ref); iri != nil {
		user, err := d.store.UserByIRI(ctx, iri)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, db.ErrNotFound) {
			return domain.User{}, err
		}
	}

	profile := d.deref.Resolve(ctx, ref)
	if profile == nil {
		return domain.User{}, fmt.Errorf("%w: actor could not be dereferenced", ErrInvalidData)
	}
	return d.shadowActor(ctx, *profile)
}

// shadowActor persists a remote actor's profile. Shadows carry no private
// key; they exist so follows, likes and posts have a stable local author id
// and so signatures can be checked without refetching the key every time.
func (d *Dispatcher) shadowActor(ctx context.Context, profile apub.Object) (domain.User, error) {
	apID, err := url.Parse(profile.ID)
	if err != nil || profile.ID == "" {
		return domain.User{}, fmt.Errorf("%w: actor id %q", ErrInvalidData, profile.ID)
	}

	// An embedded actor may already be known under its id.
	if user, err := d.store.UserByIRI(ctx, apID); err == nil {
		return user, nil
	} else if !errors.Is(err, db.ErrNotFound) {
		return domain.User{}, err
	}

	for property, value := range map[string]string{
		"preferredUsername": profile.PreferredUsername,
		"inbox":             profile.Inbox,
		"outbox":            profile.Outbox,
		"followers":         profile.Followers,
		"following":         profile.Following,
	} {
		if value == "" {
			return domain.User{}, fmt.Errorf("%w: actor %s is missing %s", ErrInvalidData, profile.ID, property)
		}
	}
	if profile.PublicKey == nil || profile.PublicKey.PublicKeyPem == "" {
		return domain.User{}, fmt.Errorf("%w: actor %s has no public key", ErrInvalidData, profile.ID)
	}

	inbox, err := url.Parse(profile.Inbox)
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: actor inbox %q", ErrInvalidData, profile.Inbox)
	}
	outbox, err := url.Parse(profile.Outbox)
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: actor outbox %q", ErrInvalidData, profile.Outbox)
	}
	followers, err := url.Parse(profile.Followers)
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: actor followers %q", ErrInvalidData, profile.Followers)
	}
	following, err := url.Parse(profile.Following)
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: actor following %q", ErrInvalidData, profile.Following)
	}

	now := time.Now()
	user := domain.User{
		UserCore: domain.UserCore{
			ID:       uuid.New(),
			Username: profile.PreferredUsername,
			Name:     profile.Name,
			Domain:   apID.Host,
			Summary:  profile.Summary,
		},
		ApID:        apID,
		Inbox:       inbox,
		Outbox:      outbox,
		Followers:   followers,
		Following:   following,
		PublicKey:   profile.PublicKey.PublicKeyPem,
		Local:       false,
		Created:     now,
		LastUpdated: now,
	}
	if profile.URL != nil {
		user.URL = d.deref.ResolveURI(profile.URL)
	}

	if err = d.store.CreateUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	log.Info().
		Str("actor", profile.ID).
		Str("username", user.Username).
		Msg("created shadow record for remote actor")
	return user, nil
}
