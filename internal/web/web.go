// The web package carries the federation-facing HTTP surface: the shared
// inbox plus the actor and object documents other servers dereference.
package web

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/kepler-social/kepler/internal/config"
	"github.com/kepler-social/kepler/internal/db"
	"github.com/kepler-social/kepler/internal/queue"
	"github.com/kepler-social/kepler/internal/signature"
)

const ContentType = "application/activity+json"

// Inbound payloads larger than this are rejected outright.
const maxBodySize = 1 << 20

type Handler struct {
	Config   *config.Configuration
	store    db.DB
	producer *queue.Producer
}

func New(cfg *config.Configuration, store db.DB, producer *queue.Producer) Handler {
	return Handler{
		Config:   cfg,
		store:    store,
		producer: producer,
	}
}

func (h Handler) Mount(r chi.Router) {
	r.Post("/inbox", h.PostInbox)
	r.Get("/users/{username}", h.GetUser)
	r.Get("/orbits/{name}", h.GetOrbit)
}

// PostInbox accepts the raw document without parsing it: validation happens
// in the worker, the request only needs its signing context captured before
// the connection goes away. 202 means "queued", nothing more.
func (h Handler) PostInbox(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	origin := signature.Capture(r)
	if err = h.producer.EnqueueFederate(r.Context(), body, origin, r.Host); err != nil {
		log.Error().Err(err).Msg("failed to enqueue inbound activity")
		http.Error(w, "", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
