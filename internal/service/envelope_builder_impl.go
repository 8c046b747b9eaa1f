package service

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/jnst/egisz-callback-relay/internal/model"
)

const (
	contentTypeXML  = "application/xml; charset=utf-8"
	contentTypeJSON = "application/json"
)

// EnvelopeBuilderImpl implements EnvelopeBuilder for the XML and JSON wire formats.
type EnvelopeBuilderImpl struct {
	format model.EnvelopeFormat
}

// NewEnvelopeBuilderImpl creates a builder for format. Unknown formats fall back to XML.
func NewEnvelopeBuilderImpl(format model.EnvelopeFormat) EnvelopeBuilder {
	if format != model.EnvelopeFormatJSON {
		format = model.EnvelopeFormatXML
	}

	return &EnvelopeBuilderImpl{format: format}
}

// Build serializes the three notification fields. The payload is carried as
// is and never decoded. Fields the format cannot carry unchanged (invalid
// UTF-8, or characters XML 1.0 forbids) fail with ErrEnvelopeConstruction.
func (b *EnvelopeBuilderImpl) Build(notificationID, objectID, payload string) ([]byte, error) {
	fields := []struct{ name, value string }{
		{"id", notificationID},
		{"oid", objectID},
		{"response", payload},
	}
	for _, field := range fields {
		if err := b.checkField(field.value); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", model.ErrEnvelopeConstruction, field.name, err)
		}
	}

	envelope := model.ResultEnvelope{
		NotificationID: notificationID,
		ObjectID:       objectID,
		Payload:        payload,
	}

	var (
		body []byte
		err  error
	)

	switch b.format {
	case model.EnvelopeFormatJSON:
		body, err = json.Marshal(envelope)
	default:
		body, err = xml.Marshal(envelope)
		if err == nil {
			body = append([]byte(xml.Header), body...)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrEnvelopeConstruction, err)
	}

	return body, nil
}

func (b *EnvelopeBuilderImpl) checkField(value string) error {
	if !utf8.ValidString(value) {
		return errors.New("invalid UTF-8")
	}
	if b.format == model.EnvelopeFormatJSON {
		return nil
	}

	for i, r := range value {
		if !isXMLChar(r) {
			return fmt.Errorf("character %U at offset %d is not allowed in XML", r, i)
		}
	}

	return nil
}

// isXMLChar reports whether r is in the XML 1.0 Char production.
func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		(r >= 0x10000 && r <= 0x10FFFF)
}

// ContentType returns the media type of built envelopes.
func (b *EnvelopeBuilderImpl) ContentType() string {
	if b.format == model.EnvelopeFormatJSON {
		return contentTypeJSON
	}

	return contentTypeXML
}
