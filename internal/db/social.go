package db

import (
	"context"
	"net/url"

	"github.com/google/uuid"

	"github.com/kepler-social/kepler/internal/domain"
)

type Follows interface {
	// CreateFollow is idempotent: a second call for the same pair returns
	// the existing edge without error. Required by at-least-once delivery.
	CreateFollow(ctx context.Context, follow domain.Follow) (uuid.UUID, error)
	DeleteFollow(ctx context.Context, followerID, followeeID uuid.UUID) error
	DeleteFollowByIRI(ctx context.Context, iri *url.URL) error
	FollowersOf(ctx context.Context, followeeID uuid.UUID) ([]domain.User, error)
}

type Likes interface {
	// CreateLike tolerates duplicate delivery the same way CreateFollow does.
	CreateLike(ctx context.Context, like domain.Like) (uuid.UUID, error)
	DeleteLike(ctx context.Context, userID, postID uuid.UUID) error
	DeleteLikeByIRI(ctx context.Context, iri *url.URL) error
}

type Orbits interface {
	OrbitByID(ctx context.Context, id uuid.UUID) (domain.Orbit, error)
	OrbitByIRI(ctx context.Context, iri *url.URL) (domain.Orbit, error)
	CreateOrbit(ctx context.Context, orbit domain.Orbit) error
	AddMember(ctx context.Context, orbitID, userID uuid.UUID, iri *url.URL) error
	RemoveMember(ctx context.Context, orbitID, userID uuid.UUID) error
	RemoveMemberByIRI(ctx context.Context, iri *url.URL) error
	LocalMembers(ctx context.Context, orbitID uuid.UUID) ([]domain.User, error)
}
