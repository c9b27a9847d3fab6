package signature

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"code.superseriousbusiness.org/httpsig"

	"github.com/kepler-social/kepler/internal/keys"
)

func signedRequest(t *testing.T, privPem string, body []byte) *http.Request {
	t.Helper()

	key, err := keys.ParsePrivateKeyPem(privPem)
	if err != nil {
		t.Fatal(err)
	}

	signer, _, err := httpsig.NewSigner(
		[]httpsig.Algorithm{httpsig.RSA_SHA256},
		httpsig.DigestSha256,
		[]string{httpsig.RequestTarget, "date", "digest"},
		httpsig.Signature,
		3600,
	)
	if err != nil {
		t.Fatal(err)
	}

	r := httptest.NewRequest(http.MethodPost, "https://local.example/inbox", bytes.NewReader(body))
	r.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	if err = signer.SignRequest(key, "https://remote.example/users/ada#main-key", r, body); err != nil {
		t.Fatal(err)
	}
	return r
}

func TestVerifyCapturedSignature(t *testing.T) {
	pub, priv, err := keys.GenerateKeysPem(2048)
	if err != nil {
		t.Fatal(err)
	}

	body := []byte(`{"type": "Follow"}`)
	origin := Capture(signedRequest(t, priv, body))

	if !Verify(origin, pub) {
		t.Error("signature did not verify against the signing key")
	}

	keyId, ok := KeyID(origin)
	if !ok || keyId != "https://remote.example/users/ada#main-key" {
		t.Errorf("keyId = %q, ok = %v", keyId, ok)
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	_, priv, err := keys.GenerateKeysPem(2048)
	if err != nil {
		t.Fatal(err)
	}
	otherPub, _, err := keys.GenerateKeysPem(2048)
	if err != nil {
		t.Fatal(err)
	}

	origin := Capture(signedRequest(t, priv, []byte(`{}`)))
	if Verify(origin, otherPub) {
		t.Error("signature verified against a key that never signed it")
	}
}

func TestVerifyRejectsMissingContext(t *testing.T) {
	pub, _, err := keys.GenerateKeysPem(2048)
	if err != nil {
		t.Fatal(err)
	}

	if Verify(nil, pub) {
		t.Error("nil origin context verified")
	}

	unsigned := Capture(httptest.NewRequest(http.MethodPost, "https://local.example/inbox", nil))
	if Verify(unsigned, pub) {
		t.Error("unsigned request verified")
	}
}

func TestVerifyRejectsGarbageKey(t *testing.T) {
	_, priv, err := keys.GenerateKeysPem(2048)
	if err != nil {
		t.Fatal(err)
	}
	origin := Capture(signedRequest(t, priv, []byte(`{}`)))

	if Verify(origin, "not a pem block") {
		t.Error("garbage key verified")
	}
}
