// Package client implements signed HTTP against remote ActivityPub servers:
// dereferencing documents with the instance key, and delivering documents to
// remote inboxes signed with the sending actor's own key.
package client

import (
	"bytes"
	"context"
	"crypto"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"code.superseriousbusiness.org/httpsig"
	"github.com/rs/zerolog/log"

	"github.com/kepler-social/kepler/internal/apub"
	"github.com/kepler-social/kepler/internal/keys"
)

var prefs = []httpsig.Algorithm{httpsig.RSA_SHA256}
var getHeaders = []string{httpsig.RequestTarget, "date"}
var postHeaders = []string{httpsig.RequestTarget, "date", "digest"}
var mainKey, _ = url.Parse("#main-key")

const userAgent = "kepler"

// HttpClient performs federation I/O. Dereferencing signs with the instance
// actor's key; deliveries sign with the key handed in per call, since
// fan-out jobs act on behalf of individual local actors.
type HttpClient struct {
	client         *http.Client
	key            crypto.PrivateKey
	pubKeyId       *url.URL
	getSigner      httpsig.Signer
	getSignerMutex sync.Mutex
}

func New(client *http.Client, instanceKeyPem string, keyId *url.URL) (*HttpClient, error) {
	key, err := keys.ParsePrivateKeyPem(instanceKeyPem)
	if err != nil {
		return nil, err
	}

	getSigner, _, err := httpsig.NewSigner(prefs, httpsig.DigestSha256, getHeaders, httpsig.Signature, 3600)
	if err != nil {
		return nil, err
	}

	return &HttpClient{
		client:    client,
		key:       key,
		pubKeyId:  keyId,
		getSigner: getSigner,
	}, nil
}

// GetDocument dereferences an IRI into a parsed Document. It satisfies
// apub.Fetcher; retry policy belongs to the Dereferencer, not here.
func (c *HttpClient) GetDocument(ctx context.Context, iri *url.URL) (apub.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, iri.String(), nil)
	if err != nil {
		return apub.Document{}, err
	}

	c.getSignerMutex.Lock()
	req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	req.Header.Set("Accept", "application/activity+json")
	req.Header.Set("User-Agent", userAgent)
	err = c.getSigner.SignRequest(c.key, c.pubKeyId.String(), req, nil)
	c.getSignerMutex.Unlock()
	if err != nil {
		log.Error().Err(err).Msg("error while signing request")
		return apub.Document{}, err
	}

	res, err := c.client.Do(req)
	if err != nil {
		return apub.Document{}, err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		content, _ := io.ReadAll(res.Body)
		log.Debug().Str("status", res.Status).Bytes("response", content).Msg("fetch error")
		return apub.Document{}, fmt.Errorf("%d %s: %s", res.StatusCode, res.Status, content)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return apub.Document{}, err
	}
	return apub.Parse(body)
}

// Deliver signs a Document with the sending actor's key and POSTs it to a
// remote inbox. An empty key falls back to the instance key, used when the
// instance actor itself is the sender.
func (c *HttpClient) Deliver(ctx context.Context, doc apub.Document, inbox *url.URL, from *url.URL, privateKeyPem string) error {
	key := c.key
	keyId := c.pubKeyId
	if privateKeyPem != "" {
		var err error
		key, err = keys.ParsePrivateKeyPem(privateKeyPem)
		if err != nil {
			log.Error().Err(err).Str("actor", from.String()).Msg("sending actor's private key does not parse")
			return err
		}
		keyId = from.ResolveReference(mainKey)
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, inbox.String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/activity+json")
	req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	req.Header.Set("User-Agent", userAgent)

	signer, _, err := httpsig.NewSigner(prefs, httpsig.DigestSha256, postHeaders, httpsig.Signature, 3600)
	if err != nil {
		log.Error().Err(err).Msg("failed to construct signer")
		return err
	}
	if err = signer.SignRequest(key, keyId.String(), req, body); err != nil {
		return err
	}

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		content, _ := io.ReadAll(res.Body)
		log.Error().Int("code", res.StatusCode).Bytes("response body", content).Msg("delivery error")
		return fmt.Errorf("error %d: %s", res.StatusCode, res.Status)
	}
	return nil
}
