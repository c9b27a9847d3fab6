package domain

import (
	"net/url"
	"time"

	"github.com/google/uuid"
)

type UserCore struct {
	ID       uuid.UUID
	Username string
	Name     string
	Domain   string
	Summary  string
	URL      *url.URL
}

// User is a local account or the local shadow record of a remote actor.
// Remote users carry an empty PrivateKey: they never authenticate against
// this server directly.
type User struct {
	UserCore
	ApID        *url.URL
	Inbox       *url.URL
	Outbox      *url.URL
	Followers   *url.URL
	Following   *url.URL
	PublicKey   string
	PrivateKey  string
	Local       bool
	Created     time.Time
	LastUpdated time.Time
}

// Orbit is a federated group actor. Local orbits hold a signing key so the
// orbit itself can accept follows and announce member activity.
type Orbit struct {
	ID         uuid.UUID
	Name       string
	Summary    string
	ApID       *url.URL
	Inbox      *url.URL
	Outbox     *url.URL
	Followers  *url.URL
	PublicKey  string
	PrivateKey string
	Local      bool
	Created    time.Time
}

type Follow struct {
	ID         uuid.UUID
	ApID       *url.URL
	FollowerID uuid.UUID
	FolloweeID uuid.UUID
	Created    time.Time
}

type Like struct {
	ID      uuid.UUID
	ApID    *url.URL
	UserID  uuid.UUID
	PostID  uuid.UUID
	Created time.Time
}
