package apub

import (
	"net/url"
	"time"
)

// Addressed builds a recipient list reference from plain IRIs.
func Addressed(uris ...string) *Reference {
	if len(uris) == 0 {
		return nil
	}
	if len(uris) == 1 {
		return Remote(uris[0])
	}
	refs := make([]Reference, len(uris))
	for i, u := range uris {
		refs[i] = Reference{kind: refRemote, uri: u}
	}
	return Mixed(refs...)
}

// NewResponse builds an Accept/Reject/... activity answering the original
// activity, addressed to its actor.
func NewResponse(kind ActivityType, id, actor, to *url.URL, original Object) Object {
	now := time.Now().UTC()
	return Object{
		ID:        id.String(),
		Type:      kind.String(),
		Actor:     Remote(actor.String()),
		To:        Remote(to.String()),
		Object:    Embed(original),
		Published: &now,
	}
}

// NewActivity wraps an object in an activity of the given verb.
func NewActivity(kind ActivityType, id, actor *url.URL, obj Object, to ...string) Object {
	now := time.Now().UTC()
	return Object{
		ID:        id.String(),
		Type:      kind.String(),
		Actor:     Remote(actor.String()),
		To:        Addressed(to...),
		Object:    Embed(obj),
		Published: &now,
	}
}

// NewTombstone marks a deleted object.
func NewTombstone(id *url.URL, formerType string) Object {
	now := time.Now().UTC()
	return Object{
		ID:         id.String(),
		Type:       ObjectTombstone.String(),
		FormerType: formerType,
		Deleted:    &now,
	}
}
