package apns

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient points a client at a local test server.
func testClient(srv *httptest.Server) *Client {
	return &Client{Host: srv.URL, HTTPClient: srv.Client()}
}

func TestPush_AcceptedNotification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/3/device/11aa22bb", r.URL.Path)
		w.Header().Set("apns-id", uuid.NewString())
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	res, err := testClient(srv).Push(context.Background(), &Notification{
		DeviceToken: "11aa22bb",
		Payload:     `{"aps":{"alert":"hi"}}`,
	})
	require.NoError(t, err)
	assert.True(t, res.Sent())
	assert.NoError(t, res.Err())
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Empty(t, res.Reason)
}

func TestPush_EchoesCallerApnsID(t *testing.T) {
	id := uuid.NewString()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("apns-id", r.Header.Get("apns-id"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	res, err := testClient(srv).Push(context.Background(), &Notification{
		DeviceToken: "t", ApnsID: id, Payload: "{}",
	})
	require.NoError(t, err)
	assert.Equal(t, id, res.ApnsID)
}

func TestPush_RejectionIsNotATransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"reason":"BadDeviceToken"}`))
	}))
	defer srv.Close()

	res, err := testClient(srv).Push(context.Background(), &Notification{DeviceToken: "t", Payload: "{}"})
	require.NoError(t, err, "a completed exchange must never surface as a transport error")
	assert.False(t, res.Sent())
	assert.Equal(t, ReasonBadDeviceToken, res.Reason)

	var apnsErr *Error
	require.ErrorAs(t, res.Err(), &apnsErr)
	assert.Equal(t, http.StatusBadRequest, apnsErr.StatusCode)
	assert.True(t, apnsErr.Reason.ShouldRemoveToken())
}

func TestPush_UnregisteredCarriesTimestamp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
		_, _ = w.Write([]byte(`{"reason":"Unregistered","timestamp":1688070400000}`))
	}))
	defer srv.Close()

	res, err := testClient(srv).Push(context.Background(), &Notification{DeviceToken: "t", Payload: "{}"})
	require.NoError(t, err)
	assert.Equal(t, ReasonUnregistered, res.Reason)
	assert.Equal(t, time.Unix(1688070400, 0), res.Timestamp.Time)
}

func TestPush_UnknownReasonPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"reason":"SomeFutureReason"}`))
	}))
	defer srv.Close()

	res, err := testClient(srv).Push(context.Background(), &Notification{DeviceToken: "t", Payload: "{}"})
	require.NoError(t, err)
	assert.Equal(t, Reason("SomeFutureReason"), res.Reason)
	assert.False(t, res.Reason.Known())
	assert.Equal(t, "SomeFutureReason", res.Reason.Description())
}

func TestPush_MalformedErrorBodyStillYieldsOutcome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	res, err := testClient(srv).Push(context.Background(), &Notification{DeviceToken: "t", Payload: "{}"})
	require.NoError(t, err)
	assert.False(t, res.Sent())
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.Empty(t, res.Reason)
	assert.Error(t, res.Err())
}

func TestPush_TransportFailureIsConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing is listening anymore

	_, err := testClient(srv).Push(context.Background(), &Notification{DeviceToken: "t", Payload: "{}"})

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, srv.URL, connErr.Host)
	assert.Error(t, connErr.Unwrap())
}

func TestPush_CancellationAbandonsTheRequestCleanly(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := testClient(srv).Push(ctx, &Notification{DeviceToken: "t", Payload: "{}"})

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.ErrorIs(t, err, context.Canceled)
}

// The correlation test runs 50 concurrent pushes over one shared client and
// asserts every caller gets the outcome minted for its own device token. The
// server plants each request's token into the reason string, so a crossed
// wire would show up as a mismatched reason.
func TestPush_ConcurrentOutcomesStayCorrelated(t *testing.T) {
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deviceToken := strings.TrimPrefix(r.URL.Path, "/3/device/")
		w.Header().Set("apns-id", r.Header.Get("apns-id"))
		w.WriteHeader(http.StatusBadRequest)
		_, _ = fmt.Fprintf(w, `{"reason":%q}`, "planted-"+deviceToken)
	}))
	srv.EnableHTTP2 = true
	srv.StartTLS()
	defer srv.Close()

	client := testClient(srv)

	const inFlight = 50
	var wg sync.WaitGroup
	wg.Add(inFlight)
	outcomes := make([]*Response, inFlight)
	errs := make([]error, inFlight)

	for i := 0; i < inFlight; i++ {
		go func(i int) {
			defer wg.Done()
			n := &Notification{
				DeviceToken: fmt.Sprintf("device-%02d", i),
				ApnsID:      uuid.NewString(),
				Payload:     "{}",
			}
			outcomes[i], errs[i] = client.Push(context.Background(), n)
		}(i)
	}
	wg.Wait()

	for i := 0; i < inFlight; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, outcomes[i])
		assert.Equal(t, Reason(fmt.Sprintf("planted-device-%02d", i)), outcomes[i].Reason,
			"outcome attributed to the wrong request")
	}
}

func TestPush_SharedClientCloseIsSafe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := testClient(srv)
	_, err := client.Push(context.Background(), &Notification{DeviceToken: "t", Payload: "{}"})
	require.NoError(t, err)
	client.Close()

	// Errors after the server goes away are surfaced, never hidden behind a
	// silent redial loop: the caller owns the reconnect decision.
	srv.Close()
	_, err = client.Push(context.Background(), &Notification{DeviceToken: "t", Payload: "{}"})
	var connErr *ConnectionError
	assert.ErrorAs(t, err, &connErr)
}
