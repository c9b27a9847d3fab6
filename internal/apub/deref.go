package apub

import (
	"context"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// DefaultFetchCeiling bounds how long a single remote dereference may keep
// retrying before the reference is given up as unresolvable.
const DefaultFetchCeiling = 300 * time.Second

// Fetcher retrieves a remote document, typically over signed HTTP.
type Fetcher interface {
	GetDocument(ctx context.Context, iri *url.URL) (Document, error)
}

// Dereferencer materializes References into Objects. Its contract is
// non-failing: a reference that cannot be resolved yields nil, never an
// error, and retry policy lives entirely here rather than in callers.
type Dereferencer struct {
	fetcher      Fetcher
	fetchCeiling time.Duration
}

func NewDereferencer(fetcher Fetcher, fetchCeiling time.Duration) *Dereferencer {
	if fetchCeiling <= 0 {
		fetchCeiling = DefaultFetchCeiling
	}
	return &Dereferencer{
		fetcher:      fetcher,
		fetchCeiling: fetchCeiling,
	}
}

// Resolve turns a reference into an owned Object. Embedded references are
// cloned without I/O; remote references are fetched with exponential backoff
// until the ceiling elapses; mixed lists and open maps have no single-object
// interpretation and resolve to nil.
func (d *Dereferencer) Resolve(ctx context.Context, ref *Reference) *Object {
	if ref == nil {
		return nil
	}

	switch ref.kind {
	case refEmbedded:
		obj := ref.obj.Clone()
		return &obj
	case refRemote:
		iri, err := url.Parse(ref.uri)
		if err != nil {
			log.Warn().Str("uri", ref.uri).Msg("unparseable remote reference")
			return nil
		}
		return d.fetch(ctx, iri)
	default:
		return nil
	}
}

// ResolveURI extracts a plain identifier from a remote reference without any
// I/O. Every other variant yields nil.
func (d *Dereferencer) ResolveURI(ref *Reference) *url.URL {
	uri, ok := ref.Remote()
	if !ok {
		return nil
	}
	parsed, err := url.Parse(uri)
	if err != nil {
		return nil
	}
	return parsed
}

func (d *Dereferencer) fetch(ctx context.Context, iri *url.URL) *Object {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = d.fetchCeiling

	var doc Document
	operation := func() error {
		var err error
		doc, err = d.fetcher.GetDocument(ctx, iri)
		return err
	}

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		log.Warn().Err(err).Str("iri", iri.String()).Msg("dereference exhausted retries")
		return nil
	}

	obj := doc.Object
	return &obj
}
