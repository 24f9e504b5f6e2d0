package orgclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
	"github.com/rockethooks/onboarding/onboarding"
	"github.com/rockethooks/onboarding/orgclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type graphQLRequest struct {
	Query     string `json:"query"`
	Variables struct {
		Input struct {
			Name string `json:"name"`
		} `json:"input"`
	} `json:"variables"`
}

func newClient(t *testing.T, server *httptest.Server, opts ...orgclient.Option) *orgclient.Client {
	t.Helper()

	base := []orgclient.Option{
		orgclient.WithHTTPClient(server.Client()),
		orgclient.WithBackoff(time.Millisecond, 5*time.Millisecond),
		orgclient.WithLogger(slogt.New(t)),
	}

	client, err := orgclient.New(server.URL, append(base, opts...)...)
	require.NoError(t, err)

	return client
}

func TestCreateOrganization(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req graphQLRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "createOrganization(input: $input)")
		assert.Equal(t, "Acme", req.Variables.Input.Name)

		_, _ = w.Write([]byte(`{"data":{"createOrganization":{"id":"org-1","name":"Acme"}}}`))
	}))
	defer server.Close()

	org, err := newClient(t, server, orgclient.WithToken("s3cret")).CreateOrganization(t.Context(), "Acme")
	require.NoError(t, err)
	assert.Equal(t, onboarding.Organization{ID: "org-1", Name: "Acme"}, org)
}

func TestCreateOrganizationRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "try later", http.StatusServiceUnavailable)

			return
		}

		_, _ = w.Write([]byte(`{"data":{"createOrganization":{"id":"org-2","name":"Acme"}}}`))
	}))
	defer server.Close()

	org, err := newClient(t, server).CreateOrganization(t.Context(), "Acme")
	require.NoError(t, err)
	assert.Equal(t, "org-2", org.ID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCreateOrganizationGivesUp(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newClient(t, server, orgclient.WithMaxTries(2)).CreateOrganization(t.Context(), "Acme")
	require.ErrorIs(t, err, orgclient.ErrHTTPStatus)
	assert.Contains(t, err.Error(), "502")
	assert.Equal(t, int32(2), calls.Load())
}

func TestCreateOrganizationPermanentFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		message string
	}{
		{name: "client error", status: http.StatusUnauthorized, body: "nope", wantErr: orgclient.ErrHTTPStatus, message: "401"},
		{
			name: "graphql errors", status: http.StatusOK,
			body:    `{"errors":[{"message":"name taken"},{"message":"try another"}]}`,
			wantErr: orgclient.ErrGraphQL, message: "name taken; try another",
		},
		{
			name: "empty payload", status: http.StatusOK,
			body: `{"data":{"createOrganization":null}}`, wantErr: orgclient.ErrEmptyResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newClient(t, server).CreateOrganization(t.Context(), "Acme")
			require.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.message)
			assert.Equal(t, int32(1), calls.Load(), "permanent failures are not retried")
		})
	}
}

func TestCreateOrganizationCanceled(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}

		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	_, err := newClient(t, server).CreateOrganization(ctx, "Acme")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewRequiresEndpoint(t *testing.T) {
	t.Parallel()

	_, err := orgclient.New("  ")
	require.ErrorIs(t, err, orgclient.ErrEndpointRequired)
}
