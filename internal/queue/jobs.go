package queue

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/kepler-social/kepler/internal/signature"
)

// ErrBadPayload marks a message whose payload cannot be interpreted. It is
// terminal: requeueing a poison message can never succeed.
var ErrBadPayload = errors.New("bad job payload")

type JobType uint8

const (
	JobTypeUnknown JobType = iota
	// FederateActivityPub carries an unparsed inbound ActivityPub document.
	FederateActivityPub
	// DeliverActivity posts an outbound document to one remote inbox.
	DeliverActivity
	// FanoutEvent notifies one local recipient of a domain event.
	FanoutEvent
)

// QueueJob is the wire envelope carried by the transport. The job type tag
// determines which optional fields are populated; unknown combinations fail
// closed in the worker.
type QueueJob struct {
	ID         uuid.UUID                `json:"job_id"`
	Type       JobType                  `json:"job_type"`
	Payload    json.RawMessage          `json:"payload,omitempty"`
	OriginHost string                   `json:"origin_host,omitempty"`
	Origin     *signature.OriginContext `json:"origin,omitempty"`
	// Context smuggles small correlation values, such as an acting user id.
	Context []string `json:"context,omitempty"`
}

// DeliveryPayload is the payload of a DeliverActivity job.
type DeliveryPayload struct {
	Inbox    string          `json:"inbox"`
	Actor    string          `json:"actor"`
	Document json.RawMessage `json:"document"`
}

// FanoutPayload is the payload of a FanoutEvent job: one recipient, one
// subject record.
type FanoutPayload struct {
	RecordID    uuid.UUID `json:"record_id"`
	RecipientID uuid.UUID `json:"recipient_id"`
	Event       string    `json:"event"`
}
