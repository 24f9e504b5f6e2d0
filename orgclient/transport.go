package orgclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/fereidani/httpdecompressor"
	"github.com/google/uuid"
	"github.com/rs/dnscache"
)

const (
	acceptEncoding   = "gzip, deflate, br, zstd"
	dialTimeout      = 10 * time.Second
	dialKeepAlive    = 30 * time.Second
	redactKeepPrefix = 7
)

// dnsResolver is shared by every transport built here.
var dnsResolver = &dnscache.Resolver{} //nolint:gochecknoglobals

// sensitiveHeaders are logged with everything but a short prefix masked.
var sensitiveHeaders = []string{"Authorization", "Cookie", "Set-Cookie", "X-Api-Key"} //nolint:gochecknoglobals

// NewTransport returns the round tripper the client uses by default: a
// DNS-caching dialer, transparent response decompression and request logging
// with credentials redacted.
func NewTransport(logger *slog.Logger) http.RoundTripper {
	if logger == nil {
		logger = slog.Default()
	}

	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		base = &http.Transport{}
	}

	trans := base.Clone()
	trans.DisableCompression = true
	useDNSCacheDialer(trans, dialTimeout, dialKeepAlive)

	return &loggingTransport{
		transport: &decompressor{roundTripper: trans},
		logger:    logger,
	}
}

func useDNSCacheDialer(trans *http.Transport, timeout, keepAlive time.Duration) {
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: keepAlive,
	}

	trans.DialContext = func(ctx context.Context, network string, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}

		ips, err := dnsResolver.LookupHost(ctx, host)
		if err != nil {
			return nil, err
		}

		var dialErr error

		for _, ip := range ips {
			conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
			if err == nil {
				return conn, nil
			}

			dialErr = errors.Join(dialErr, err)
		}

		return nil, fmt.Errorf("dial %s: %w", addr, dialErr)
	}
}

// decompressor asks for compressed responses and decodes whatever
// Content-Encoding comes back.
type decompressor struct {
	roundTripper http.RoundTripper
}

var _ http.RoundTripper = (*decompressor)(nil)

func (d *decompressor) RoundTrip(request *http.Request) (*http.Response, error) {
	if request.Header.Get("Accept-Encoding") == "" {
		request = request.Clone(request.Context())
		request.Header.Set("Accept-Encoding", acceptEncoding)
	}

	rsp, err := d.roundTripper.RoundTrip(request)
	if err != nil {
		return rsp, err
	}

	origBody := rsp.Body

	bodyReader, err := httpdecompressor.Reader(rsp)
	if err != nil {
		_ = origBody.Close()

		return nil, err
	}

	if bodyReader == origBody {
		return rsp, nil
	}

	// the decoder closes before the connection it reads from
	rsp.Body = &decodedBody{Reader: bodyReader, closers: []io.Closer{bodyReader, origBody}}
	rsp.Header.Del("Content-Encoding")
	rsp.Header.Del("Content-Length")
	rsp.ContentLength = -1

	return rsp, nil
}

type decodedBody struct {
	io.Reader

	closers []io.Closer
}

func (b *decodedBody) Close() error {
	var err error

	for _, c := range b.closers {
		err = errors.Join(err, c.Close())
	}

	return err
}

// loggingTransport logs each exchange under one correlation id.
type loggingTransport struct {
	transport http.RoundTripper
	logger    *slog.Logger
}

var _ http.RoundTripper = (*loggingTransport)(nil)

func (l *loggingTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	uuid7, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("error generating UUID: %w", err)
	}

	correlationID := uuid7.String()
	ctx := request.Context()

	l.logger.DebugContext(ctx, "Sending HTTP request",
		"correlation_id", correlationID,
		"method", request.Method,
		"url", request.URL.Redacted(),
		"headers", redactHeaders(request.Header),
	)

	start := time.Now()

	response, err := l.transport.RoundTrip(request)
	if err != nil {
		l.logger.ErrorContext(ctx, "HTTP request failed",
			"correlation_id", correlationID,
			"method", request.Method,
			"url", request.URL.Redacted(),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)

		return response, err
	}

	l.logger.DebugContext(ctx, "Received HTTP response",
		"correlation_id", correlationID,
		"method", request.Method,
		"url", request.URL.Redacted(),
		"status", response.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"headers", redactHeaders(response.Header),
	)

	return response, nil
}

// redactHeaders flattens headers for logging, masking credentials.
func redactHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))

	for key, values := range headers {
		value := strings.Join(values, ", ")

		for _, sensitive := range sensitiveHeaders {
			if strings.EqualFold(key, sensitive) {
				value = redact(value)

				break
			}
		}

		out[key] = value
	}

	return out
}

func redact(value string) string {
	if len(value) <= redactKeepPrefix {
		return strings.Repeat("*", len(value))
	}

	return value[:redactKeepPrefix] + strings.Repeat("*", len(value)-redactKeepPrefix)
}
