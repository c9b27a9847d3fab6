package apub

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	// ContextActivityStreams is the base JSON-LD context of every document
	// this server emits.
	ContextActivityStreams = "https://www.w3.org/ns/activitystreams"
	ContextSecurity        = "https://w3id.org/security/v1"

	// PublicCollection addresses an activity to the world.
	PublicCollection = "https://www.w3.org/ns/activitystreams#Public"
)

var ErrInvalidDocument = errors.New("invalid document")

// ContextEntry is one element of a JSON-LD @context: either a namespace URI
// or a map of aliases. Alias values that are themselves objects (expanded
// term definitions) are not resolvable locally and are discarded at decode.
type ContextEntry struct {
	URI     string
	Aliases map[string]string
}

type Context []ContextEntry

func (c *Context) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return fmt.Errorf("%w: empty context", ErrInvalidDocument)
	}

	switch b[0] {
	case '"':
		var uri string
		if err := json.Unmarshal(b, &uri); err != nil {
			return err
		}
		*c = Context{{URI: uri}}
		return nil
	case '{':
		entry, err := decodeContextMap(b)
		if err != nil {
			return err
		}
		*c = Context{entry}
		return nil
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		entries := make(Context, 0, len(raw))
		for _, item := range raw {
			var sub Context
			if err := sub.UnmarshalJSON(item); err != nil {
				return err
			}
			entries = append(entries, sub...)
		}
		*c = entries
		return nil
	default:
		return fmt.Errorf("%w: context is neither string, map nor list", ErrInvalidDocument)
	}
}

func decodeContextMap(b []byte) (ContextEntry, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return ContextEntry{}, err
	}

	entry := ContextEntry{Aliases: make(map[string]string, len(m))}
	for short, raw := range m {
		var target string
		if err := json.Unmarshal(raw, &target); err != nil {
			// Expanded term definition; no local resolution possible.
			continue
		}
		entry.Aliases[short] = target
	}
	return entry, nil
}

func (c Context) MarshalJSON() ([]byte, error) {
	if len(c) == 1 && c[0].URI != "" {
		return json.Marshal(c[0].URI)
	}

	out := make([]any, 0, len(c))
	for _, entry := range c {
		if entry.URI != "" {
			out = append(out, entry.URI)
		} else {
			out = append(out, entry.Aliases)
		}
	}
	return json.Marshal(out)
}

type Alias struct {
	Short string
	Long  string
}

// Aliases flattens the context into an ordered substitution list. Targets in
// an external namespace (absolute http/https URIs) are excluded: they cannot
// be resolved against the local vocabulary. When the same short key appears
// in several entries, the last entry of the context array wins; within one
// map, keys are applied in sorted order so the outcome does not depend on
// map iteration.
func (c Context) Aliases() []Alias {
	var ordered []Alias
	index := make(map[string]int)

	for _, entry := range c {
		if entry.Aliases == nil {
			continue
		}
		shorts := make([]string, 0, len(entry.Aliases))
		for short := range entry.Aliases {
			shorts = append(shorts, short)
		}
		sort.Strings(shorts)

		for _, short := range shorts {
			target := entry.Aliases[short]
			if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
				continue
			}
			if i, seen := index[short]; seen {
				ordered[i].Long = target
				continue
			}
			index[short] = len(ordered)
			ordered = append(ordered, Alias{Short: short, Long: target})
		}
	}
	return ordered
}

// Document is the top-level wire envelope: a JSON-LD context plus one
// flattened object.
type Document struct {
	Context Context
	Object  Object
}

// NewDocument wraps an object in the contexts this server speaks.
func NewDocument(obj Object) Document {
	return Document{
		Context: Context{
			{URI: ContextActivityStreams},
			{URI: ContextSecurity},
		},
		Object: obj,
	}
}

// Parse decodes raw JSON into a Document in two phases: the context is
// decoded and flattened into alias pairs, the root map's keys are rewritten
// with those pairs, and only then is the result decoded into the typed
// Object. A key collision during rewriting favors the alias target; the
// short key is removed.
func Parse(raw []byte) (Document, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	var doc Document
	if rawCtx, ok := m["@context"]; ok {
		if err := json.Unmarshal(rawCtx, &doc.Context); err != nil {
			return Document{}, fmt.Errorf("%w: malformed @context", ErrInvalidDocument)
		}
		delete(m, "@context")
	}

	for _, alias := range doc.Context.Aliases() {
		value, present := m[alias.Short]
		if !present {
			continue
		}
		delete(m, alias.Short)
		m[alias.Long] = value
	}

	flat, err := json.Marshal(m)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err = json.Unmarshal(flat, &doc.Object); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return doc, nil
}

func (d Document) MarshalJSON() ([]byte, error) {
	body, err := json.Marshal(d.Object)
	if err != nil {
		return nil, err
	}

	var m map[string]json.RawMessage
	if err = json.Unmarshal(body, &m); err != nil {
		return nil, err
	}

	if len(d.Context) != 0 {
		ctx, err := json.Marshal(d.Context)
		if err != nil {
			return nil, err
		}
		m["@context"] = ctx
	}
	return json.Marshal(m)
}
