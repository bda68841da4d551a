package iooracle_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/horizonml/horizon/internal/iooracle"
	"github.com/horizonml/horizon/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraftSQL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

			var req map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "weekly averages", req["prompt"])

			json.NewEncoder(w).Encode(map[string]string{
				"text":      "SELECT * FROM {{source}}",
				"thread_id": "t-1",
			})
		}))
	defer srv.Close()

	drafter := iooracle.New(config.OracleConfig{URL: srv.URL, Token: "secret"})
	require.NotNil(t, drafter)

	draft, err := drafter.DraftSQL(context.Background(), "weekly averages", "")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM {{source}}", draft.Text)
	assert.Equal(t, "t-1", draft.ThreadID)
}

func TestDraftSQLServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}))
	defer srv.Close()

	drafter := iooracle.New(config.OracleConfig{URL: srv.URL})
	_, err := drafter.DraftSQL(context.Background(), "anything", "")
	assert.ErrorContains(t, err, "503")
}

func TestNewDisabled(t *testing.T) {
	assert.Nil(t, iooracle.New(config.OracleConfig{}))
}
