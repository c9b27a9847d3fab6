package db

import (
	"context"
	"net/url"

	"github.com/google/uuid"

	"github.com/kepler-social/kepler/internal/domain"
)

type Users interface {
	UserByID(ctx context.Context, id uuid.UUID) (domain.User, error)
	UserByIRI(ctx context.Context, iri *url.URL) (domain.User, error)
	UserByUsername(ctx context.Context, username string) (domain.User, error)
	CreateUser(ctx context.Context, user domain.User) error
	DeleteUserByIRI(ctx context.Context, iri *url.URL) error
	PrivateKeyByIRI(ctx context.Context, iri *url.URL) (string, error)
}

type Posts interface {
	PostByID(ctx context.Context, id uuid.UUID) (domain.Post, error)
	PostByIRI(ctx context.Context, iri *url.URL) (domain.Post, error)
	CreatePost(ctx context.Context, post domain.Post) error
	UpdatePost(ctx context.Context, post domain.Post) error
	DeletePostByIRI(ctx context.Context, iri *url.URL) error
}
