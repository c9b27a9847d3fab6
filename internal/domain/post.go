package domain

import (
	"net/url"
	"time"

	"github.com/google/uuid"
)

type Visibility uint8

const (
	VisibilityUnknown Visibility = iota
	PublicFederated
	FollowersOnly
	Unlisted
)

func (v Visibility) String() string {
	switch v {
	case PublicFederated:
		return "public"
	case FollowersOnly:
		return "followers"
	case Unlisted:
		return "unlisted"
	default:
		return "unknown"
	}
}

type Post struct {
	ID         uuid.UUID
	ApID       *url.URL
	AuthorID   uuid.UUID
	OrbitID    uuid.UUID
	Content    string
	MediaType  string
	Sensitive  bool
	Visibility Visibility
	Published  time.Time
	Updated    time.Time
}

// InOrbit reports whether the post belongs to an orbit rather than a
// personal timeline.
func (p Post) InOrbit() bool {
	return p.OrbitID != uuid.Nil
}
