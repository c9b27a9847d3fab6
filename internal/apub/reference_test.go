package apub

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReferenceUnmarshal(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		check    func(*Reference) bool
		expected string
	}{
		{
			"bare IRI",
			`"https://remote.example/users/ada"`,
			(*Reference).IsRemote,
			"remote",
		},
		{
			"inline object with type",
			`{"type": "Note", "content": "hi"}`,
			(*Reference).IsEmbedded,
			"embedded",
		},
		{
			"inline object with only an id",
			`{"id": "https://remote.example/notes/1"}`,
			(*Reference).IsEmbedded,
			"embedded",
		},
		{
			"open map without id or type",
			`{"sharedInbox": "https://remote.example/inbox"}`,
			(*Reference).IsMap,
			"map",
		},
		{
			"mixed list",
			`["https://remote.example/a", {"type": "Person", "id": "https://remote.example/b"}]`,
			(*Reference).IsMixed,
			"mixed",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var ref Reference
			if err := json.Unmarshal([]byte(c.raw), &ref); err != nil {
				t.Fatal(err)
			}
			if !c.check(&ref) {
				t.Errorf("reference did not decode as %s", c.expected)
			}
		})
	}

	var ref Reference
	if err := json.Unmarshal([]byte(`17`), &ref); err == nil {
		t.Error("numeric reference should not decode")
	}
}

func TestReferenceURIs(t *testing.T) {
	cases := []struct {
		name     string
		ref      *Reference
		expected []string
	}{
		{"nil", nil, nil},
		{"remote", Remote("https://a.example/"), []string{"https://a.example/"}},
		{"embedded yields nothing", Embed(Object{ID: "https://a.example/"}), nil},
		{"map yields nothing", OpenMap(map[string]json.RawMessage{"k": json.RawMessage(`"v"`)}), nil},
		{
			"mixed recurses and skips embedded entries",
			Mixed(
				*Remote("https://a.example/"),
				*Embed(Object{ID: "https://b.example/"}),
				*Remote("https://c.example/"),
			),
			[]string{"https://a.example/", "https://c.example/"},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if diff := cmp.Diff(c.expected, c.ref.URIs()); diff != "" {
				t.Error(diff)
			}
		})
	}
}

func TestReferenceRoundTrip(t *testing.T) {
	for _, raw := range []string{
		`"https://remote.example/users/ada"`,
		`{"sharedInbox":"https://remote.example/inbox"}`,
		`["https://a.example/","https://b.example/"]`,
	} {
		var ref Reference
		if err := json.Unmarshal([]byte(raw), &ref); err != nil {
			t.Fatal(err)
		}
		out, err := json.Marshal(ref)
		if err != nil {
			t.Fatal(err)
		}
		if string(out) != raw {
			t.Errorf("round trip changed %s into %s", raw, out)
		}
	}
}
