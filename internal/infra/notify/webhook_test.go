package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookNotifier_PostsMessagePayload(t *testing.T) {
	var gotContentType string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	require.NoError(t, n.Send(context.Background(), "Jane", "Doe"))

	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, map[string]string{"message": "Hey, Jane Doe it's your birthday"}, gotBody)
}

func TestWebhookNotifier_NonSuccessStatusIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL).Send(context.Background(), "Jane", "Doe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestWebhookNotifier_UnreachableEndpointIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	srv.Close()

	err := NewWebhookNotifier(srv.URL).Send(context.Background(), "Jane", "Doe")
	require.Error(t, err)
}
