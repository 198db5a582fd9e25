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

func TestSlackNotifier_Notify(t *testing.T) {
	var received struct {
		Text string `json:"text"`
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	n := NewSlackNotifier(ts.URL)
	err := n.Notify(context.Background(), "lodash@4.17.20 crossed the high threshold")
	require.NoError(t, err)
	assert.Equal(t, "lodash@4.17.20 crossed the high threshold", received.Text)
}

func TestSlackNotifier_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer ts.Close()

	n := NewSlackNotifier(ts.URL)
	err := n.Notify(context.Background(), "msg")
	assert.Error(t, err)
}

func TestSlackNotifier_MissingURL(t *testing.T) {
	n := NewSlackNotifier("")
	err := n.Notify(context.Background(), "msg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
