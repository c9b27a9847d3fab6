package apub

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAliases(t *testing.T) {
	cases := []struct {
		name     string
		context  Context
		expected []Alias
	}{
		{
			"plain namespace only",
			Context{{URI: ContextActivityStreams}},
			nil,
		},
		{
			"external targets are excluded",
			Context{{Aliases: map[string]string{
				"toot":   "http://joinmastodon.org/ns#",
				"schema": "https://schema.org#",
				"Emoji":  "toot:Emoji",
			}}},
			[]Alias{{Short: "Emoji", Long: "toot:Emoji"}},
		},
		{
			"keys within one entry apply in sorted order",
			Context{{Aliases: map[string]string{
				"b": "beta",
				"a": "alpha",
				"c": "gamma",
			}}},
			[]Alias{{Short: "a", Long: "alpha"}, {Short: "b", Long: "beta"}, {Short: "c", Long: "gamma"}},
		},
		{
			"later entries override earlier ones in place",
			Context{
				{Aliases: map[string]string{"sc": "first", "other": "kept"}},
				{URI: ContextSecurity},
				{Aliases: map[string]string{"sc": "second"}},
			},
			[]Alias{{Short: "other", Long: "kept"}, {Short: "sc", Long: "second"}},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if diff := cmp.Diff(c.expected, c.context.Aliases()); diff != "" {
				t.Error(diff)
			}
		})
	}
}

func TestParseRewritesAliasedKeys(t *testing.T) {
	raw := []byte(`{
		"@context": [
			"https://www.w3.org/ns/activitystreams",
			{"ostatus": "http://ostatus.org#", "atomUri": "ostatus:atomUri"}
		],
		"id": "https://remote.example/notes/1",
		"type": "Note",
		"content": "hello",
		"sensitive": true,
		"atomUri": "https://remote.example/notes/1.atom"
	}`)

	doc, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}

	if doc.Object.Content != "hello" {
		t.Errorf("content = %q", doc.Object.Content)
	}
	if doc.Object.Sensitive == nil || !*doc.Object.Sensitive {
		t.Error("sensitive flag lost")
	}

	if _, present := doc.Object.Extra["atomUri"]; present {
		t.Error("short key survived rewriting")
	}
	moved, present := doc.Object.Extra["ostatus:atomUri"]
	if !present {
		t.Fatal("rewritten key missing from extras")
	}
	var uri string
	if err = json.Unmarshal(moved, &uri); err != nil || uri != "https://remote.example/notes/1.atom" {
		t.Errorf("rewritten value = %s", moved)
	}
}

func TestParseCollisionFavorsTarget(t *testing.T) {
	raw := []byte(`{
		"@context": {"v": "vendor:field"},
		"type": "Note",
		"v": "short",
		"vendor:field": "long"
	}`)

	doc, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if _, present := doc.Object.Extra["v"]; present {
		t.Error("short key should be removed on collision")
	}
	var value string
	if err = json.Unmarshal(doc.Object.Extra["vendor:field"], &value); err != nil || value != "short" {
		t.Errorf("collision target = %s, want the aliased value", doc.Object.Extra["vendor:field"])
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not an object", `"hello"`},
		{"malformed context", `{"@context": 17, "type": "Note"}`},
		{"truncated", `{"type": "No`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Parse([]byte(c.raw))
			if !errors.Is(err, ErrInvalidDocument) {
				t.Errorf("err = %v, want ErrInvalidDocument", err)
			}
		})
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	original := NewDocument(Object{
		ID:      "https://local.example/notes/1",
		Type:    "Note",
		Content: "round and round",
		To:      Remote(PublicCollection),
		Extra: map[string]json.RawMessage{
			"vendor:thing": json.RawMessage(`{"deep":true}`),
		},
	})

	raw, err := json.Marshal(original)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(original.Object, parsed.Object); diff != "" {
		t.Error(diff)
	}
	if diff := cmp.Diff(original.Context, parsed.Context); diff != "" {
		t.Error(diff)
	}
}
