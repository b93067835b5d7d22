package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelwallet/walletbridge/approval"
	"github.com/kestrelwallet/walletbridge/relay"
	"github.com/kestrelwallet/walletbridge/signal"
	"github.com/kestrelwallet/walletbridge/walletconnect"
)

// fakeController is a scripted SessionController.
type fakeController struct {
	pairErr   error
	pairedURI string
	closed    int
	session   *walletconnect.Session
}

func (f *fakeController) Pair(ctx context.Context, uri string) error {
	f.pairedURI = uri
	return f.pairErr
}

func (f *fakeController) Close(ctx context.Context) {
	f.closed++
	f.session = nil
}

func (f *fakeController) CurrentSession() (walletconnect.Session, bool) {
	if f.session == nil {
		return walletconnect.Session{}, false
	}
	return *f.session, true
}

// noopSurface keeps prompts pending until resolved over the API.
type noopSurface struct{}

func (noopSurface) Open() error                    { return nil }
func (noopSurface) Present(p approval.Prompt) error { return nil }
func (noopSurface) Close() error                   { return nil }

type apiFixture struct {
	api        *API
	controller *fakeController
	broker     *approval.Broker
	hub        *signal.Hub
	srv        *httptest.Server
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	fx := &apiFixture{
		controller: &fakeController{},
		broker:     approval.NewBroker(noopSurface{}, approval.WithLoadDelay(0)),
		hub:        signal.NewHub(),
	}
	fx.api = New(fx.controller, fx.broker, fx.hub)
	fx.srv = httptest.NewServer(fx.api.Router())
	t.Cleanup(fx.srv.Close)
	return fx
}

func (fx *apiFixture) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := http.Post(fx.srv.URL+path, "application/json", &buf)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (fx *apiFixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(fx.srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	fx := newAPIFixture(t)
	resp := fx.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestOpenAPISpecServed(t *testing.T) {
	fx := newAPIFixture(t)
	resp := fx.get(t, "/openapi.yaml")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/yaml", resp.Header.Get("Content-Type"))
}

func TestPair(t *testing.T) {
	fx := newAPIFixture(t)

	resp := fx.post(t, "/v1/pair", PairRequest{URI: "wc:topic@2?symKey=00"})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "wc:topic@2?symKey=00", fx.controller.pairedURI)
}

func TestPairMissingURI(t *testing.T) {
	fx := newAPIFixture(t)
	resp := fx.post(t, "/v1/pair", PairRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPairMalformedURI(t *testing.T) {
	fx := newAPIFixture(t)
	fx.controller.pairErr = fmt.Errorf("pairing: %w", relay.ErrMalformedURI)

	resp := fx.post(t, "/v1/pair", PairRequest{URI: "nonsense"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPairRelayUnreachable(t *testing.T) {
	fx := newAPIFixture(t)
	fx.controller.pairErr = fmt.Errorf("dialing bridge: connection refused")

	resp := fx.post(t, "/v1/pair", PairRequest{URI: "wc:topic@2?symKey=00"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	body := decodeBody[ErrorResponse](t, resp)
	assert.Contains(t, body.Error, "connection refused")
}

func TestDisconnectAlwaysSucceeds(t *testing.T) {
	fx := newAPIFixture(t)

	resp := fx.post(t, "/v1/disconnect", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 1, fx.controller.closed)

	resp = fx.post(t, "/v1/disconnect", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestGetSession(t *testing.T) {
	fx := newAPIFixture(t)

	resp := fx.get(t, "/v1/session")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	fx.controller.session = &walletconnect.Session{
		SessionTopic: "topic-1",
		ChainID:      "aleo:1",
		Address:      "aleo1abc",
	}
	resp = fx.get(t, "/v1/session")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[SessionResponse](t, resp)
	assert.Equal(t, "topic-1", body.Session.SessionTopic)
}

func TestApprovalRoundTrip(t *testing.T) {
	fx := newAPIFixture(t)

	type outcome struct {
		decision approval.Decision
		err      error
	}
	done := make(chan outcome, 1)
	go func() {
		d, err := fx.broker.Request(context.Background(), approval.Prompt{
			Method:   "sign",
			Question: "Do you want to sign this message?",
		})
		done <- outcome{d, err}
	}()

	// The prompt appears in the pending list.
	var prompt approval.Prompt
	require.Eventually(t, func() bool {
		resp := fx.get(t, "/v1/approvals")
		body := decodeBody[ApprovalsResponse](t, resp)
		if len(body.Approvals) == 0 {
			return false
		}
		prompt = body.Approvals[0]
		return true
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "sign", prompt.Method)

	// The window answers.
	resp := fx.post(t, "/v1/approvals/"+prompt.ID, DecisionRequest{Approved: true, FeeOption: true})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	select {
	case out := <-done:
		require.NoError(t, out.err)
		assert.True(t, out.decision.Approved)
		assert.True(t, out.decision.FeeOption)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for decision")
	}

	// A second answer for the same prompt is a 404.
	resp = fx.post(t, "/v1/approvals/"+prompt.ID, DecisionRequest{Approved: false})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestResolveUnknownPrompt(t *testing.T) {
	fx := newAPIFixture(t)
	resp := fx.post(t, "/v1/approvals/no-such-prompt", DecisionRequest{Approved: true})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEventsStream(t *testing.T) {
	fx := newAPIFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fx.srv.URL+"/v1/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// Give the handler a moment to subscribe before publishing.
	time.Sleep(50 * time.Millisecond)
	fx.hub.Publish(signal.EventConnected, walletconnect.Session{SessionTopic: "topic-1"})

	reader := bufio.NewReader(resp.Body)
	var sawEvent, sawData bool
	for !sawEvent || !sawData {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "event: "+signal.EventConnected) {
			sawEvent = true
		}
		if strings.HasPrefix(line, "data: ") && strings.Contains(line, "topic-1") {
			sawData = true
		}
	}
}

func TestSignalSurfaceBroadcasts(t *testing.T) {
	hub := signal.NewHub()
	surface := NewSignalSurface(hub)

	events, cancel := hub.Subscribe()
	defer cancel()

	require.NoError(t, surface.Open())
	env := <-events
	assert.Equal(t, signal.EventApprovalPending, env.Type)

	require.NoError(t, surface.Present(approval.Prompt{ID: "p1", Method: "sign"}))
	env = <-events
	assert.Equal(t, signal.EventApprovalPending, env.Type)
	prompt, ok := env.Event.(approval.Prompt)
	require.True(t, ok)
	assert.Equal(t, "p1", prompt.ID)

	require.NoError(t, surface.Close())
	env = <-events
	assert.Equal(t, signal.EventApprovalClosed, env.Type)
}
