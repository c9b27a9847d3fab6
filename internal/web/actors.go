package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/kepler-social/kepler/internal/apub"
	"github.com/kepler-social/kepler/internal/db"
	"github.com/kepler-social/kepler/internal/domain"
)

// GetUser serves the actor document peers fetch when they dereference one of
// our users.
func (h Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.store.UserByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		http.Error(w, "", statusFor(err))
		return
	}
	if !user.Local {
		// Shadow records belong to their home server.
		http.Error(w, "", http.StatusNotFound)
		return
	}

	writeDocument(w, apub.NewDocument(userActor(user)))
}

func (h Handler) GetOrbit(w http.ResponseWriter, r *http.Request) {
	orbit, err := h.orbitByName(r)
	if err != nil {
		http.Error(w, "", statusFor(err))
		return
	}

	writeDocument(w, apub.NewDocument(orbitActor(orbit)))
}

func (h Handler) orbitByName(r *http.Request) (domain.Orbit, error) {
	iri := h.Config.Url.JoinPath("orbits", chi.URLParam(r, "name"))
	return h.store.OrbitByIRI(r.Context(), iri)
}

func userActor(user domain.User) apub.Object {
	return apub.Object{
		ID:                user.ApID.String(),
		Type:              apub.ObjectPerson.String(),
		Name:              user.Name,
		Summary:           user.Summary,
		PreferredUsername: user.Username,
		Inbox:             user.Inbox.String(),
		Outbox:            user.Outbox.String(),
		Followers:         user.Followers.String(),
		Following:         user.Following.String(),
		PublicKey: &apub.PublicKey{
			ID:           user.ApID.String() + "#main-key",
			Owner:        user.ApID.String(),
			PublicKeyPem: user.PublicKey,
		},
	}
}

func orbitActor(orbit domain.Orbit) apub.Object {
	return apub.Object{
		ID:                orbit.ApID.String(),
		Type:              apub.ObjectGroup.String(),
		Name:              orbit.Name,
		Summary:           orbit.Summary,
		PreferredUsername: orbit.Name,
		Inbox:             orbit.Inbox.String(),
		Outbox:            orbit.Outbox.String(),
		Followers:         orbit.Followers.String(),
		PublicKey: &apub.PublicKey{
			ID:           orbit.ApID.String() + "#main-key",
			Owner:        orbit.ApID.String(),
			PublicKeyPem: orbit.PublicKey,
		},
	}
}

func writeDocument(w http.ResponseWriter, doc apub.Document) {
	w.Header().Set("Content-Type", ContentType)
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		log.Error().Err(err).Msg("unable to marshal actor document")
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
