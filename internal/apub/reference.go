package apub

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type refKind uint8

const (
	refNone refKind = iota
	refEmbedded
	refRemote
	refMixed
	refMap
)

// Reference stands in for any ActivityPub property that may be an inline
// object, a bare IRI, a list mixing both, or an open string-keyed map such as
// an actor's endpoints. Exactly one variant is active; only the Dereferencer
// converts between them.
type Reference struct {
	kind refKind
	obj  *Object
	uri  string
	list []Reference
	m    map[string]json.RawMessage
}

func Embed(o Object) *Reference {
	return &Reference{kind: refEmbedded, obj: &o}
}

func Remote(uri string) *Reference {
	return &Reference{kind: refRemote, uri: uri}
}

func Mixed(refs ...Reference) *Reference {
	return &Reference{kind: refMixed, list: refs}
}

func OpenMap(m map[string]json.RawMessage) *Reference {
	return &Reference{kind: refMap, m: m}
}

func (r *Reference) IsEmbedded() bool { return r != nil && r.kind == refEmbedded }
func (r *Reference) IsRemote() bool   { return r != nil && r.kind == refRemote }
func (r *Reference) IsMixed() bool    { return r != nil && r.kind == refMixed }
func (r *Reference) IsMap() bool      { return r != nil && r.kind == refMap }

func (r *Reference) Embedded() (*Object, bool) {
	if r == nil || r.kind != refEmbedded {
		return nil, false
	}
	return r.obj, true
}

func (r *Reference) Remote() (string, bool) {
	if r == nil || r.kind != refRemote {
		return "", false
	}
	return r.uri, true
}

func (r *Reference) List() ([]Reference, bool) {
	if r == nil || r.kind != refMixed {
		return nil, false
	}
	return r.list, true
}

func (r *Reference) Map() (map[string]json.RawMessage, bool) {
	if r == nil || r.kind != refMap {
		return nil, false
	}
	return r.m, true
}

// URIs collects the plain identifiers reachable without I/O: a remote
// reference yields its own IRI, a mixed list yields the IRIs of its remote
// entries. Embedded and map variants contribute nothing.
func (r *Reference) URIs() []string {
	if r == nil {
		return nil
	}
	switch r.kind {
	case refRemote:
		return []string{r.uri}
	case refMixed:
		var uris []string
		for i := range r.list {
			uris = append(uris, r.list[i].URIs()...)
		}
		return uris
	default:
		return nil
	}
}

func (r *Reference) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return fmt.Errorf("%w: empty reference", ErrInvalidDocument)
	}

	switch b[0] {
	case '"':
		var uri string
		if err := json.Unmarshal(b, &uri); err != nil {
			return err
		}
		*r = Reference{kind: refRemote, uri: uri}
		return nil
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		list := make([]Reference, len(raw))
		for i, item := range raw {
			if err := list[i].UnmarshalJSON(item); err != nil {
				return err
			}
		}
		*r = Reference{kind: refMixed, list: list}
		return nil
	case '{':
		var m map[string]json.RawMessage
		if err := json.Unmarshal(b, &m); err != nil {
			return err
		}
		// A shape without id or type is structurally a map, not an object.
		if _, hasID := m["id"]; !hasID {
			if _, hasType := m["type"]; !hasType {
				*r = Reference{kind: refMap, m: m}
				return nil
			}
		}
		var obj Object
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		*r = Reference{kind: refEmbedded, obj: &obj}
		return nil
	default:
		return fmt.Errorf("%w: reference is neither string, list nor object", ErrInvalidDocument)
	}
}

func (r Reference) MarshalJSON() ([]byte, error) {
	switch r.kind {
	case refEmbedded:
		return json.Marshal(r.obj)
	case refRemote:
		return json.Marshal(r.uri)
	case refMixed:
		return json.Marshal(r.list)
	case refMap:
		return json.Marshal(r.m)
	default:
		return []byte("null"), nil
	}
}

// Equal makes references comparable by go-cmp without exporting the variant
// fields.
func (r Reference) Equal(o Reference) bool {
	a, err := r.MarshalJSON()
	if err != nil {
		return false
	}
	b, err := o.MarshalJSON()
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}
