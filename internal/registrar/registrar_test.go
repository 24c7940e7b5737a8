package registrar_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinywideclouds/go-push-client/internal/registrar"
	"github.com/tinywideclouds/go-push-client/pkg/push"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegister_Success(t *testing.T) {
	var gotBody map[string]string
	var gotPath, gotAccept, gotContentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAccept = r.Header.Get("Accept")
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	reg := registrar.NewHTTPRegistrar(server.URL, server.Client(), testLogger())
	err := reg.Register(context.Background(), push.Token("tok-abc"))

	require.NoError(t, err)
	assert.Equal(t, "/api/register-push-token", gotPath)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, map[string]string{"token": "tok-abc"}, gotBody)
}

func TestRegister_AnyTwoHundredIsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	reg := registrar.NewHTTPRegistrar(server.URL, server.Client(), testLogger())
	assert.NoError(t, reg.Register(context.Background(), push.Token("tok")))
}

func TestRegister_ServerErrorIsReported(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	reg := registrar.NewHTTPRegistrar(server.URL, server.Client(), testLogger())
	err := reg.Register(context.Background(), push.Token("tok"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestRegister_TransportFailureIsReported(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	reg := registrar.NewHTTPRegistrar(server.URL, nil, testLogger())
	err := reg.Register(context.Background(), push.Token("tok"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "transport failed")
}
