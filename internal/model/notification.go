// Package model defines domain models and data structures.
package model

import "encoding/xml"

// AckStatus is the value returned to the health-record exchange for every
// notification, whatever happened to the delivery.
const AckStatus = 0

// Notification is one asynchronous result received from the exchange.
type Notification struct {
	ID       string
	ObjectID string
	Payload  string
}

// CallbackRegistration binds a future notification id to the consumer endpoint
// that should receive its result.
type CallbackRegistration struct {
	ID             string `json:"id"`
	DestinationURL string `json:"destinationUrl"`
}

// CorrelationRecord is a raw registration as held by a correlation store.
type CorrelationRecord struct {
	Key     string
	Channel string
	Body    []byte
}

// ResultEnvelope is the document forwarded to the consumer.
// Field order is part of the consumer contract.
type ResultEnvelope struct {
	XMLName        xml.Name `xml:"resultContent" json:"-"`
	NotificationID string   `xml:"id"            json:"id"`
	ObjectID       string   `xml:"oid"           json:"oid"`
	Payload        string   `xml:"response"      json:"response"`
}

// EnvelopeFormat selects the wire encoding of a ResultEnvelope.
type EnvelopeFormat string

const (
	// EnvelopeFormatXML encodes envelopes as XML documents.
	EnvelopeFormatXML EnvelopeFormat = "xml"
	// EnvelopeFormatJSON encodes envelopes as JSON objects.
	EnvelopeFormatJSON EnvelopeFormat = "json"
)
