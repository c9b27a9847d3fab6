// Package signature verifies HTTP signatures on inbound deliveries. The
// signing context is captured once at the inbox route and travels opaquely
// through the queue, so verification can run on a worker long after the
// original request has been answered.
package signature

import (
	"net/http"
	"net/url"

	"code.superseriousbusiness.org/httpsig"
	"github.com/rs/zerolog/log"

	"github.com/kepler-social/kepler/internal/keys"
)

// OriginContext is the slice of an inbound request needed to re-verify its
// signature later: method, path, query and headers.
type OriginContext struct {
	Method  string              `json:"method"`
	Path    string              `json:"path"`
	Query   string              `json:"query,omitempty"`
	Headers map[string][]string `json:"headers"`
}

// Capture extracts the signing context from a live request.
func Capture(r *http.Request) *OriginContext {
	headers := make(map[string][]string, len(r.Header)+1)
	for name, values := range r.Header {
		headers[name] = append([]string(nil), values...)
	}
	// The Host header is promoted onto the request struct by net/http but
	// may be part of the signed header set.
	if _, present := headers["Host"]; !present && r.Host != "" {
		headers["Host"] = []string{r.Host}
	}

	return &OriginContext{
		Method:  r.Method,
		Path:    r.URL.Path,
		Query:   r.URL.RawQuery,
		Headers: headers,
	}
}

// Verify checks the captured signature against the claimed actor's public
// key, RSA-SHA256 over the (request-target)-prefixed header set. A missing
// context can never authenticate.
func Verify(origin *OriginContext, publicKeyPem string) bool {
	if origin == nil {
		return false
	}

	req := &http.Request{
		Method: origin.Method,
		URL: &url.URL{
			Path:     origin.Path,
			RawQuery: origin.Query,
		},
		Header: http.Header(origin.Headers),
	}

	verifier, err := httpsig.NewVerifier(req)
	if err != nil {
		log.Debug().Err(err).Msg("inbound request carries no parseable signature")
		return false
	}

	key, err := keys.ParsePublicKeyPem(publicKeyPem)
	if err != nil {
		log.Warn().Err(err).Msg("actor public key does not parse")
		return false
	}

	if err = verifier.Verify(key, httpsig.RSA_SHA256); err != nil {
		log.Debug().Err(err).Str("keyId", verifier.KeyId()).Msg("signature verification failed")
		return false
	}
	return true
}

// KeyID reports the keyId the request claims to be signed with, when one is
// present.
func KeyID(origin *OriginContext) (string, bool) {
	if origin == nil {
		return "", false
	}

	req := &http.Request{
		Method: origin.Method,
		URL:    &url.URL{Path: origin.Path, RawQuery: origin.Query},
		Header: http.Header(origin.Headers),
	}
	verifier, err := httpsig.NewVerifier(req)
	if err != nil {
		return "", false
	}
	return verifier.KeyId(), true
}
