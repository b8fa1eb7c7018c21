// ABOUTME: Tests for the HTTP transport adapter: send payload shape, failure mapping, status probe.

package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSender_PostsRecipientAndMessage(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewHTTPSender(srv.URL, time.Second, nil)
	err := s.Send(context.Background(), "user@transport", "hello there")
	require.NoError(t, err)
	assert.Equal(t, "user@transport", got["recipient"])
	assert.Equal(t, "hello there", got["message"])
}

func TestHTTPSender_NonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewHTTPSender(srv.URL, time.Second, nil)
	err := s.Send(context.Background(), "user@transport", "hello")
	assert.Error(t, err, "a rejected send must fall through to the next strategy")
}

func TestHTTPSender_ChainsWithMultiSender(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer primary.Close()

	delivered := 0
	secondary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivered++
		w.WriteHeader(http.StatusOK)
	}))
	defer secondary.Close()

	ms := NewMultiSender(
		NewHTTPSender(primary.URL, time.Second, nil),
		NewHTTPSender(secondary.URL, time.Second, nil),
	)
	require.NoError(t, ms.Send(context.Background(), "user@transport", "hi"))
	assert.Equal(t, 1, delivered)
}

func TestHTTPStateFunc_DecodesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Status{Connected: true, ConnectedNumber: "+628123"})
	}))
	defer srv.Close()

	state := NewHTTPStateFunc(srv.URL, time.Second, nil)
	st := state()
	assert.True(t, st.Connected)
	assert.Equal(t, "+628123", st.ConnectedNumber)
}

func TestHTTPStateFunc_FailureReadsDisconnected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	state := NewHTTPStateFunc(srv.URL, time.Second, nil)
	srv.Close()

	assert.False(t, state().Connected)
}
