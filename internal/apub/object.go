package apub

import (
	"encoding/json"
	"reflect"
	"strings"
	"sync"
	"time"
)

type PublicKey struct {
	ID           string `json:"id,omitempty"`
	Owner        string `json:"owner,omitempty"`
	PublicKeyPem string `json:"publicKeyPem,omitempty"`
}

// Object is the flattened supertype for every AS2 shape this engine handles:
// notes, articles, actors, activities, collections and tombstones all decode
// into it in one pass. The type field, once resolved to an ObjectType or
// ActivityType, decides which facet groups are meaningful; the rest are
// simply ignored.
type Object struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type,omitempty"`

	Actor        *Reference `json:"actor,omitempty"`
	AttributedTo *Reference `json:"attributedTo,omitempty"`
	To           *Reference `json:"to,omitempty"`
	Cc           *Reference `json:"cc,omitempty"`
	Bto          *Reference `json:"bto,omitempty"`
	Bcc          *Reference `json:"bcc,omitempty"`
	Audience     *Reference `json:"audience,omitempty"`

	Name       string            `json:"name,omitempty"`
	Summary    string            `json:"summary,omitempty"`
	Content    string            `json:"content,omitempty"`
	ContentMap map[string]string `json:"contentMap,omitempty"`
	MediaType  string            `json:"mediaType,omitempty"`
	URL        *Reference        `json:"url,omitempty"`
	Published  *time.Time        `json:"published,omitempty"`
	Updated    *time.Time        `json:"updated,omitempty"`
	Deleted    *time.Time        `json:"deleted,omitempty"`
	Sensitive  *bool             `json:"sensitive,omitempty"`
	Tag        *Reference        `json:"tag,omitempty"`
	Attachment *Reference        `json:"attachment,omitempty"`
	InReplyTo  *Reference        `json:"inReplyTo,omitempty"`
	FormerType string            `json:"formerType,omitempty"`

	// Link facet.
	Href string `json:"href,omitempty"`
	Rel  string `json:"rel,omitempty"`

	// Actor facet.
	PreferredUsername string     `json:"preferredUsername,omitempty"`
	Inbox             string     `json:"inbox,omitempty"`
	Outbox            string     `json:"outbox,omitempty"`
	Followers         string     `json:"followers,omitempty"`
	Following         string     `json:"following,omitempty"`
	Endpoints         *Reference `json:"endpoints,omitempty"`
	PublicKey         *PublicKey `json:"publicKey,omitempty"`

	// Collection facet.
	TotalItems   *int64     `json:"totalItems,omitempty"`
	Items        *Reference `json:"items,omitempty"`
	OrderedItems *Reference `json:"orderedItems,omitempty"`
	First        *Reference `json:"first,omitempty"`
	Last         *Reference `json:"last,omitempty"`
	Next         *Reference `json:"next,omitempty"`
	Prev         *Reference `json:"prev,omitempty"`
	PartOf       *Reference `json:"partOf,omitempty"`

	// Activity facet.
	Object     *Reference `json:"object,omitempty"`
	Target     *Reference `json:"target,omitempty"`
	Result     *Reference `json:"result,omitempty"`
	Instrument *Reference `json:"instrument,omitempty"`

	// Question facet.
	OneOf   *Reference `json:"oneOf,omitempty"`
	AnyOf   *Reference `json:"anyOf,omitempty"`
	EndTime *time.Time `json:"endTime,omitempty"`

	// Extra preserves root keys outside the modelled vocabulary. Peers
	// routinely attach vendor extensions; dropping them would corrupt
	// documents this server later forwards or re-serves.
	Extra map[string]json.RawMessage `json:"-"`
}

func (o Object) ActivityType() (ActivityType, bool) {
	return ParseActivityType(o.Type)
}

func (o Object) ObjectType() (ObjectType, bool) {
	return ParseObjectType(o.Type)
}

// rawObject sidesteps the custom (un)marshallers below.
type rawObject Object

var knownKeysOnce sync.Once
var knownKeys map[string]struct{}

func objectKeys() map[string]struct{} {
	knownKeysOnce.Do(func() {
		knownKeys = make(map[string]struct{})
		t := reflect.TypeOf(rawObject{})
		for i := 0; i < t.NumField(); i++ {
			tag := t.Field(i).Tag.Get("json")
			name, _, _ := strings.Cut(tag, ",")
			if name != "" && name != "-" {
				knownKeys[name] = struct{}{}
			}
		}
	})
	return knownKeys
}

func (o *Object) UnmarshalJSON(b []byte) error {
	var r rawObject
	if err := json.Unmarshal(b, &r); err != nil {
		return err
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	for key := range objectKeys() {
		delete(m, key)
	}
	delete(m, "@context")
	if len(m) > 0 {
		r.Extra = m
	}

	*o = Object(r)
	return nil
}

func (o Object) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(rawObject(o))
	if err != nil {
		return nil, err
	}
	if len(o.Extra) == 0 {
		return b, nil
	}

	var m map[string]json.RawMessage
	if err = json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	for key, value := range o.Extra {
		if _, taken := m[key]; !taken {
			m[key] = value
		}
	}
	return json.Marshal(m)
}

// Clone returns an owned deep copy.
func (o Object) Clone() Object {
	b, err := json.Marshal(o)
	if err != nil {
		return o
	}
	var c Object
	if err = json.Unmarshal(b, &c); err != nil {
		return o
	}
	return c
}
