// Package event defines the unit of transmission handed to the publish
// pipeline. An Event wraps an opaque payload with application properties and
// an optional partition key hint; a Batch groups events under one resolved
// partition key for a single link flush.
package event

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	errspkg "github.com/drblury/hubflow/internal/runtime/errors"
	idspkg "github.com/drblury/hubflow/internal/runtime/ids"
	"github.com/drblury/hubflow/internal/runtime/jsoncodec"
	metadatapkg "github.com/drblury/hubflow/internal/runtime/metadata"
	"github.com/drblury/hubflow/link"
)

// PropertyEventSchema identifies the proto message type an event payload was
// marshalled from.
const PropertyEventSchema = "event_message_schema"

var protoJSONMarshalOptions = protojson.MarshalOptions{
	EmitUnpopulated: true,
}

// Event is a single unit of data on the stream. Body, PartitionKey and
// Properties are set by the application before sending; the broker-assigned
// position fields are populated on the receive path and are read-only.
type Event struct {
	// Body is the opaque event payload.
	Body []byte

	// PartitionKey hints which partition the event should land on. Events
	// sharing a key are delivered in order relative to each other.
	PartitionKey string

	// Properties carries application-defined metadata.
	Properties metadatapkg.Metadata

	offset         string
	sequenceNumber int64
	enqueuedTime   time.Time
	retrievedTime  time.Time
}

// NewEvent returns an event carrying the provided payload.
func NewEvent(body []byte) *Event {
	return &Event{
		Body:       body,
		Properties: metadatapkg.Metadata{},
	}
}

// NewEventFromJSON marshals v with the JSON codec and returns an event
// carrying the encoded payload.
func NewEventFromJSON(v any) (*Event, error) {
	if v == nil {
		return nil, errspkg.ErrEventPayloadRequired
	}

	payload, err := jsoncodec.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}
	return NewEvent(payload), nil
}

// NewEventFromProto marshals m as protojson and returns an event carrying the
// encoded payload, the provided metadata and the message schema stamped under
// PropertyEventSchema.
func NewEventFromProto(m proto.Message, md metadatapkg.Metadata) (*Event, error) {
	if m == nil {
		return nil, errspkg.ErrEventPayloadRequired
	}

	payload, err := protoJSONMarshalOptions.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}

	ev := NewEvent(payload)
	ev.Properties = md.With(PropertyEventSchema, fmt.Sprintf("%T", m))
	return ev, nil
}

// NewReceivedEvent returns an event as delivered by the broker, carrying its
// assigned position. The retrieval time is set to now.
func NewReceivedEvent(body []byte, offset string, sequenceNumber int64, enqueued time.Time) *Event {
	return &Event{
		Body:           body,
		Properties:     metadatapkg.Metadata{},
		offset:         offset,
		sequenceNumber: sequenceNumber,
		enqueuedTime:   enqueued,
		retrievedTime:  time.Now().UTC(),
	}
}

// Offset returns the broker-assigned offset, empty for events that have not
// been through the broker.
func (e *Event) Offset() string { return e.offset }

// SequenceNumber returns the broker-assigned sequence number. It is only
// meaningful when Offset is non-empty.
func (e *Event) SequenceNumber() int64 { return e.sequenceNumber }

// EnqueuedTime returns when the broker accepted the event, zero for events
// that have not been through the broker.
func (e *Event) EnqueuedTime() time.Time { return e.enqueuedTime }

// RetrievedTime returns when the event was received locally, zero for events
// constructed for sending.
func (e *Event) RetrievedTime() time.Time { return e.retrievedTime }

// ToMessage converts the event into a Watermill message. Application
// properties map onto message metadata; the partition key and broker position
// travel under the x-opt annotation keys. Each call mints a fresh message ID.
func (e *Event) ToMessage() *message.Message {
	msg := message.NewMessage(idspkg.CreateULID(), e.Body)
	msg.Metadata = metadatapkg.ToWatermill(e.Properties)

	if e.PartitionKey != "" {
		msg.Metadata[link.AnnotationPartitionKey] = e.PartitionKey
	}
	if e.offset != "" {
		msg.Metadata[link.AnnotationOffset] = e.offset
		msg.Metadata[link.AnnotationSequenceNumber] = strconv.FormatInt(e.sequenceNumber, 10)
	}
	if !e.enqueuedTime.IsZero() {
		msg.Metadata[link.AnnotationEnqueuedTime] = e.enqueuedTime.UTC().Format(time.RFC3339Nano)
	}
	return msg
}

// FromMessage converts a Watermill message back into an event. Annotation
// keys are lifted into the typed position fields; everything else lands in
// Properties. Returns nil for a nil message.
func FromMessage(msg *message.Message) *Event {
	if msg == nil {
		return nil
	}

	ev := &Event{
		Body:       msg.Payload,
		Properties: metadatapkg.Metadata{},
	}
	for k, v := range msg.Metadata {
		switch k {
		case link.AnnotationPartitionKey:
			ev.PartitionKey = v
		case link.AnnotationOffset:
			ev.offset = v
		case link.AnnotationSequenceNumber:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				ev.sequenceNumber = n
			}
		case link.AnnotationEnqueuedTime:
			if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
				ev.enqueuedTime = t
			}
		default:
			ev.Properties[k] = v
		}
	}
	return ev
}
