// Package orgclient creates organizations through the RocketHooks GraphQL API.
package orgclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rockethooks/onboarding/onboarding"
)

const createOrganizationMutation = `mutation CreateOrganization($input: CreateOrganizationInput!) {
  createOrganization(input: $input) {
    id
    name
  }
}`

const (
	defaultMaxTries     = 4
	defaultInitialDelay = 200 * time.Millisecond
	defaultMaxDelay     = 2 * time.Second
	maxErrorBody        = 512
)

// Errors.
var (
	ErrEndpointRequired = errors.New("graphql endpoint is required")
	ErrGraphQL          = errors.New("graphql error")
	ErrHTTPStatus       = errors.New("unexpected http status")
	ErrEmptyResponse    = errors.New("createOrganization returned no organization")
)

// Client talks to the GraphQL endpoint. It implements
// onboarding.OrganizationCreator.
type Client struct {
	endpoint     string
	token        string
	http         *http.Client
	maxTries     uint
	initialDelay time.Duration
	maxDelay     time.Duration
	logger       *slog.Logger
}

var _ onboarding.OrganizationCreator = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithToken sends a bearer token with every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient replaces the client built on NewTransport.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithMaxTries bounds the attempts per call, including the first one.
func WithMaxTries(tries int) Option {
	return func(c *Client) {
		if tries > 0 {
			c.maxTries = uint(tries)
		}
	}
}

// WithBackoff sets the exponential backoff bounds between attempts.
func WithBackoff(initial, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.initialDelay = initial
		c.maxDelay = maxDelay
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for endpoint.
func New(endpoint string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, ErrEndpointRequired
	}

	c := &Client{
		endpoint:     endpoint,
		maxTries:     defaultMaxTries,
		initialDelay: defaultInitialDelay,
		maxDelay:     defaultMaxDelay,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		c.http = &http.Client{Transport: NewTransport(c.logger)}
	}

	return c, nil
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type response struct {
	Data struct {
		CreateOrganization *struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"createOrganization"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type graphQLError struct {
	Message string `json:"message"`
}

// CreateOrganization runs the createOrganization mutation. Transport errors
// and 5xx responses are retried; 4xx responses and GraphQL errors are not.
func (c *Client) CreateOrganization(ctx context.Context, name string) (onboarding.Organization, error) {
	body, err := json.Marshal(request{
		Query:     createOrganizationMutation,
		Variables: map[string]any{"input": map[string]any{"name": name}},
	})
	if err != nil {
		return onboarding.Organization{}, fmt.Errorf("encode request: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialDelay
	policy.MaxInterval = c.maxDelay

	attempt := 0

	org, err := backoff.Retry(ctx, func() (onboarding.Organization, error) {
		attempt++

		return c.post(ctx, body)
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.logger.WarnContext(ctx, "Retrying createOrganization",
				"attempt", attempt, "wait", wait, "error", err)
		}),
	)
	if err != nil {
		return onboarding.Organization{}, err
	}

	return org, nil
}

func (c *Client) post(ctx context.Context, body []byte) (onboarding.Organization, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return onboarding.Organization{}, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return onboarding.Organization{}, backoff.Permanent(ctx.Err())
		}

		return onboarding.Organization{}, fmt.Errorf("post createOrganization: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusInternalServerError {
		return onboarding.Organization{}, statusError(resp)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return onboarding.Organization{}, backoff.Permanent(statusError(resp))
	}

	var decoded response

	err = json.NewDecoder(resp.Body).Decode(&decoded)
	if err != nil {
		return onboarding.Organization{}, backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}

	if len(decoded.Errors) > 0 {
		messages := make([]string, 0, len(decoded.Errors))
		for _, e := range decoded.Errors {
			messages = append(messages, e.Message)
		}

		return onboarding.Organization{}, backoff.Permanent(
			fmt.Errorf("%w: %s", ErrGraphQL, strings.Join(messages, "; ")))
	}

	created := decoded.Data.CreateOrganization
	if created == nil || created.ID == "" {
		return onboarding.Organization{}, backoff.Permanent(ErrEmptyResponse)
	}

	return onboarding.Organization{ID: created.ID, Name: created.Name}, nil
}

func statusError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	return fmt.Errorf("%w: %d: %s", ErrHTTPStatus, resp.StatusCode, strings.TrimSpace(string(snippet)))
}
