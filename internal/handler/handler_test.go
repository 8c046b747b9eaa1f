package handler

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jnst/egisz-callback-relay/internal/client"
	"github.com/jnst/egisz-callback-relay/internal/metrics"
	"github.com/jnst/egisz-callback-relay/internal/model"
	"github.com/jnst/egisz-callback-relay/internal/repository"
	"github.com/jnst/egisz-callback-relay/internal/service"
)

const testChannel = "RestCallbackQueue"

func soapEnvelope(id, oid, response string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope">
  <soap:Body>
    <ns:sendResponse xmlns:ns="` + CallbackNamespace + `">
      <id>` + id + `</id>
      <oid>` + oid + `</oid>
      <response>` + response + `</response>
    </ns:sendResponse>
  </soap:Body>
</soap:Envelope>`
}

type soapResponse struct {
	Body struct {
		SendResponseResponse *struct {
			Status int `xml:"status"`
		} `xml:"sendResponseResponse"`
		Fault *struct {
			Code   string `xml:"Code>Value"`
			Reason string `xml:"Reason>Text"`
		} `xml:"Fault"`
	} `xml:"Body"`
}

type testServer struct {
	router http.Handler
	store  repository.CorrelationStore

	mu       sync.Mutex
	received [][]byte
	consumer *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{store: repository.NewMemoryCorrelationStoreImpl()}
	ts.consumer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		ts.mu.Lock()
		ts.received = append(ts.received, body)
		ts.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(ts.consumer.Close)

	relay := service.NewDeliveryRelayImpl(
		service.NewCorrelationResolverImpl(ts.store, testChannel),
		service.NewEnvelopeBuilderImpl(model.EnvelopeFormatXML),
		client.NewCallbackClient(time.Second),
	)
	registrations := service.NewRegistrationServiceImpl(ts.store, testChannel, time.Hour)
	ts.router = NewRouter(NewCallbackHandler(relay), NewRegistrationHandler(registrations))

	return ts
}

func (ts *testServer) deliveries() [][]byte {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	return append([][]byte(nil), ts.received...)
}

func (ts *testServer) do(method, path, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	return rec
}

func decodeSOAP(t *testing.T, rec *httptest.ResponseRecorder) soapResponse {
	t.Helper()

	var resp soapResponse
	require.NoError(t, xml.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())

	return resp
}

func TestCallback_RegisteredNotificationIsRelayed(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/registrations", "application/json",
		`{"id":"N1","destinationUrl":"`+ts.consumer.URL+`/cb"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodPost, "/callback", "application/soap+xml", soapEnvelope("N1", "OBJ-7", "QkFTRTY0"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contentTypeSOAP, rec.Header().Get("Content-Type"))

	resp := decodeSOAP(t, rec)
	require.NotNil(t, resp.Body.SendResponseResponse)
	assert.Equal(t, 0, resp.Body.SendResponseResponse.Status)

	deliveries := ts.deliveries()
	require.Len(t, deliveries, 1)
	assert.Contains(t, string(deliveries[0]), "<id>N1</id>")
	assert.Contains(t, string(deliveries[0]), "<oid>OBJ-7</oid>")
	assert.Contains(t, string(deliveries[0]), "<response>QkFTRTY0</response>")
}

func TestCallback_UnregisteredNotificationIsAcknowledged(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/callback", "application/soap+xml", soapEnvelope("N2", "OBJ-9", "..."))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeSOAP(t, rec)
	require.NotNil(t, resp.Body.SendResponseResponse)
	assert.Equal(t, 0, resp.Body.SendResponseResponse.Status)
	assert.Empty(t, ts.deliveries())
}

func TestCallback_MalformedEnvelopeIsFaulted(t *testing.T) {
	ts := newTestServer(t)

	tests := map[string]string{
		"not xml":           "hello",
		"wrong root":        `<Message><id>N1</id></Message>`,
		"missing operation": `<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope"><soap:Body/></soap:Envelope>`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, "/callback", "application/soap+xml", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			resp := decodeSOAP(t, rec)
			require.NotNil(t, resp.Body.Fault)
			assert.Equal(t, "soap:Sender", resp.Body.Fault.Code)
			assert.NotEmpty(t, resp.Body.Fault.Reason)
		})
	}

	assert.Empty(t, ts.deliveries())
}

type ctxCapturingService struct {
	ctx context.Context
}

func (s *ctxCapturingService) SendResponse(ctx context.Context, _, _, _ string) int {
	s.ctx = ctx
	return model.AckStatus
}

func TestCallback_DeliveryIsNotCanceledByCaller(t *testing.T) {
	svc := &ctxCapturingService{}
	h := NewCallbackHandler(svc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(soapEnvelope("N1", "O", "P"))).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.SendResponse(rec, req)

	require.NotNil(t, svc.ctx)
	assert.Nil(t, svc.ctx.Done())
	assert.NoError(t, svc.ctx.Err())
}

func TestRegistrations(t *testing.T) {
	ts := newTestServer(t)

	rejected := testutil.ToFloat64(metrics.RegistrationsTotal.WithLabelValues(metrics.SourceHTTP, metrics.StatusRejected))

	t.Run("created", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/registrations", "application/json", `{"id":"N5","destinationUrl":"https://consumer/cb"}`)
		require.Equal(t, http.StatusCreated, rec.Code)

		var body model.CallbackRegistration
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "N5", body.ID)

		_, err := ts.store.Get(context.Background(), "N5", testChannel)
		assert.NoError(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/registrations", "application/json", `{`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid destination", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/registrations", "application/json", `{"id":"N6","destinationUrl":"mailto:x@y"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		_, err := ts.store.Get(context.Background(), "N6", testChannel)
		assert.ErrorIs(t, err, model.ErrRecordNotFound)
	})

	assert.Equal(t, rejected+2, testutil.ToFloat64(metrics.RegistrationsTotal.WithLabelValues(metrics.SourceHTTP, metrics.StatusRejected)))

	t.Run("wrong method", func(t *testing.T) {
		rec := ts.do(http.MethodGet, "/registrations", "", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

type failingRegistrations struct{}

func (failingRegistrations) Register(context.Context, *model.CallbackRegistration) error {
	return errors.New("store unavailable")
}

func TestRegistrations_StoreFailure(t *testing.T) {
	h := NewRegistrationHandler(failingRegistrations{})

	req := httptest.NewRequest(http.MethodPost, "/registrations", strings.NewReader(`{"id":"N1","destinationUrl":"https://consumer/cb"}`))
	rec := httptest.NewRecorder()
	h.CreateRegistration(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	ts.do(http.MethodPost, "/callback", "application/soap+xml", soapEnvelope("N404", "O", "P"))

	rec = ts.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `callback_relay_deliveries_total{outcome="resolution_failed"}`)
	assert.Contains(t, rec.Body.String(), "callback_relay_delivery_duration_seconds")
}
