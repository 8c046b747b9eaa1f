// Package handler provides the HTTP handlers of the relay.
package handler

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/jnst/egisz-callback-relay/internal/logger"
	"github.com/jnst/egisz-callback-relay/internal/service"
)

const (
	contentTypeSOAP = "application/soap+xml; charset=utf-8"
	soapNamespace   = "http://www.w3.org/2003/05/soap-envelope"
	// CallbackNamespace is the target namespace of the exchange's callback service.
	CallbackNamespace = "http://emu.callback.mis.service.nr.eu.rt.ru/"

	maxRequestBytes = 64 << 20
)

var errMissingOperation = errors.New("SOAP body does not contain a sendResponse element")

type soapRequest struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		SendResponse *sendResponseRequest `xml:"sendResponse"`
	} `xml:"Body"`
}

type sendResponseRequest struct {
	ID       string `xml:"id"`
	OID      string `xml:"oid"`
	Response string `xml:"response"`
}

// CallbackHandler binds the exchange's SOAP 1.2 sendResponse operation to a CallbackService.
type CallbackHandler struct {
	callbackService service.CallbackService
}

// NewCallbackHandler creates a new handler.
func NewCallbackHandler(callbackService service.CallbackService) *CallbackHandler {
	return &CallbackHandler{callbackService: callbackService}
}

// SendResponse handles POST /callback. Any well-formed request is answered
// with the service status; only unparseable envelopes get a fault.
func (h *CallbackHandler) SendResponse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := decodeSendResponse(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		logger.FromContext(ctx).WarnContext(ctx, "rejected inbound SOAP request", slog.String("error", err.Error()))
		writeSOAPFault(w, http.StatusBadRequest, "Sender", err.Error())

		return
	}

	// A started delivery runs to completion even if the exchange hangs up.
	status := h.callbackService.SendResponse(context.WithoutCancel(ctx), req.ID, req.OID, req.Response)

	w.Header().Set("Content-Type", contentTypeSOAP)
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w,
		`%s<soap:Envelope xmlns:soap="%s"><soap:Body><ns2:sendResponseResponse xmlns:ns2="%s"><status>%d</status></ns2:sendResponseResponse></soap:Body></soap:Envelope>`,
		xml.Header, soapNamespace, CallbackNamespace, status)
}

func decodeSendResponse(body io.Reader) (*sendResponseRequest, error) {
	var envelope soapRequest
	if err := xml.NewDecoder(body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("invalid SOAP envelope: %w", err)
	}

	if envelope.Body.SendResponse == nil {
		return nil, errMissingOperation
	}

	return envelope.Body.SendResponse, nil
}

func writeSOAPFault(w http.ResponseWriter, status int, code, reason string) {
	var escaped bytes.Buffer
	_ = xml.EscapeText(&escaped, []byte(reason))

	w.Header().Set("Content-Type", contentTypeSOAP)
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w,
		`%s<soap:Envelope xmlns:soap="%s"><soap:Body><soap:Fault><soap:Code><soap:Value>soap:%s</soap:Value></soap:Code><soap:Reason><soap:Text xml:lang="en">%s</soap:Text></soap:Reason></soap:Fault></soap:Body></soap:Envelope>`,
		xml.Header, soapNamespace, code, escaped.String())
}
