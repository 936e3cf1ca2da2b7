package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGraphQLTransportExecute(t *testing.T) {
	var got graphqlRequest
	var userAgent, contentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		userAgent = r.Header.Get("User-Agent")
		contentType = r.Header.Get("Content-Type")
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Write([]byte(`{"data": {"environment": {"id": "env"}}}`))
	}))
	defer server.Close()

	transport := NewGraphQLTransport(TransportConfig{URL: server.URL})
	data, err := transport.Execute(context.Background(), opTerms, termsQuery, map[string]any{"environment": "deltacollege"})

	require.NoError(t, err)
	require.JSONEq(t, `{"environment": {"id": "env"}}`, string(data))
	require.Equal(t, termsQuery, got.Query)
	require.Equal(t, "deltacollege", got.Variables["environment"])
	require.Equal(t, DefaultUserAgent, userAgent)
	require.Contains(t, contentType, "application/json")
}

func TestGraphQLTransportErrors(t *testing.T) {
	testCases := []struct {
		name    string
		status  int
		body    string
		kind    ErrorKind
		message string
	}{
		{
			name:    "graphql errors",
			status:  http.StatusOK,
			body:    `{"errors": [{"message": "Variable \"$courseId\" of required type \"ID!\" was not provided."}, {"message": "second"}]}`,
			kind:    KindUpstream,
			message: `Variable "$courseId" of required type "ID!" was not provided.`,
		},
		{
			name:    "graphql errors with error status",
			status:  http.StatusBadRequest,
			body:    `{"errors": [{"message": "bad query"}], "data": null}`,
			kind:    KindUpstream,
			message: "bad query",
		},
		{
			name:   "server error",
			status: http.StatusBadGateway,
			body:   `<html>bad gateway</html>`,
			kind:   KindTransport,
		},
		{
			name:   "json error status",
			status: http.StatusServiceUnavailable,
			body:   `{"data": null}`,
			kind:   KindTransport,
		},
		{
			name:   "malformed body",
			status: http.StatusOK,
			body:   `not json`,
			kind:   KindShape,
		},
		{
			name:   "no data",
			status: http.StatusOK,
			body:   `{}`,
			kind:   KindShape,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			transport := NewGraphQLTransport(TransportConfig{URL: server.URL})
			_, err := transport.Execute(context.Background(), opSection, sectionQuery, nil)

			require.Error(t, err)
			require.True(t, IsKind(err, tc.kind), "got %v", err)
			if tc.message != "" {
				var upstream *UpstreamError
				require.True(t, errors.As(err, &upstream))
				require.Equal(t, tc.message, upstream.Message)
			}
		})
	}
}

func TestGraphQLTransportTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"data": {}}`))
	}))
	defer server.Close()

	transport := NewGraphQLTransport(TransportConfig{URL: server.URL, Timeout: 20 * time.Millisecond})
	_, err := transport.Execute(context.Background(), opTerms, termsQuery, nil)

	require.True(t, IsKind(err, KindTransport))
}

func TestGraphQLTransportSendsOneRequest(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	transport := NewGraphQLTransport(TransportConfig{URL: server.URL})
	_, err := transport.Execute(context.Background(), opTerms, termsQuery, nil)

	require.Error(t, err)
	require.Equal(t, 1, calls)
}
