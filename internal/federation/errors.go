package federation

import (
	"errors"

	"github.com/kepler-social/kepler/internal/apub"
	"github.com/kepler-social/kepler/internal/queue"
)

var (
	// ErrInvalidData marks activities that are structurally well-formed JSON
	// but semantically unusable: missing actor, undecodable object type,
	// actor profiles without the required properties.
	ErrInvalidData = errors.New("invalid activity data")

	// ErrMissingRecord marks activities that refer to records this server
	// has never seen and cannot create from the activity alone.
	ErrMissingRecord = errors.New("no matching record")

	// ErrUnauthorized marks activities whose HTTP signature does not verify
	// against the claimed actor's public key.
	ErrUnauthorized = errors.New("signature verification failed")

	// ErrUnimplemented marks type combinations the dispatch matrix has no
	// handler for.
	ErrUnimplemented = errors.New("unsupported activity")
)

// Permanent reports whether retrying err could ever succeed. Malformed or
// unauthorized input stays malformed on every redelivery; only I/O-shaped
// failures are worth another attempt.
func Permanent(err error) bool {
	return errors.Is(err, ErrInvalidData) ||
		errors.Is(err, ErrMissingRecord) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrUnimplemented) ||
		errors.Is(err, apub.ErrInvalidDocument) ||
		errors.Is(err, queue.ErrBadPayload)
}
