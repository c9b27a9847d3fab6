package federation

import (
	"net/url"

	"github.com/kepler-social/kepler/internal/apub"
)

// ResponseKind names the activity a handler wants sent back to the origin
// actor, if any.
type ResponseKind uint8

const (
	ResponseNone ResponseKind = iota
	ResponseAccept
	ResponseReject
	ResponseTentativeAccept
	ResponseTentativeReject
	ResponseIgnore
)

func (k ResponseKind) activityType() (apub.ActivityType, bool) {
	switch k {
	case ResponseAccept:
		return apub.ActivityAccept, true
	case ResponseReject:
		return apub.ActivityReject, true
	case ResponseTentativeAccept:
		return apub.ActivityTentativeAccept, true
	case ResponseTentativeReject:
		return apub.ActivityTentativeReject, true
	case ResponseIgnore:
		return apub.ActivityIgnore, true
	default:
		return apub.ActivityUnknown, false
	}
}

// FederateResult carries what a handler decided: which response to send and
// which local actor signs it. A zero result means no response is owed.
type FederateResult struct {
	Kind       ResponseKind
	ActorIRI   *url.URL
	PrivateKey string
}

func accept(actor *url.URL, privateKey string) FederateResult {
	return FederateResult{
		Kind:       ResponseAccept,
		ActorIRI:   actor,
		PrivateKey: privateKey,
	}
}
