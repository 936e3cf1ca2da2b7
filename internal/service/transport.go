package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultURL is the collegescheduler GraphQL endpoint
	DefaultURL = "https://api.collegescheduler.com/graphql"
	// DefaultUserAgent mimics a desktop browser; the upstream rejects library user agents
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)" +
		" AppleWebKit/537.36 (KHTML, like Gecko)" +
		" Chrome/141.0.0.0 Safari/537.36"
	defaultTimeout = 30 * time.Second
)

var tracer = otel.Tracer("classwatch/service")

// Transport executes one GraphQL operation and returns its data object
type Transport interface {
	Execute(ctx context.Context, operation, query string, variables map[string]any) (json.RawMessage, error)
}

// TransportConfig configures a GraphQLTransport. Zero values fall back to defaults.
type TransportConfig struct {
	URL       string
	UserAgent string
	Timeout   time.Duration
}

// GraphQLTransport posts queries to the upstream over HTTP
type GraphQLTransport struct {
	client *resty.Client
	url    string
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlError struct {
	Message string `json:"message"`
}

// NewGraphQLTransport creates a transport. Requests are never retried.
func NewGraphQLTransport(cfg TransportConfig) *GraphQLTransport {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("user-agent", cfg.UserAgent).
		SetRetryCount(0)

	return &GraphQLTransport{client: client, url: cfg.URL}
}

// Execute sends exactly one POST. A top-level errors array wins over the HTTP status
// and becomes an *UpstreamError.
func (t *GraphQLTransport) Execute(ctx context.Context, operation, query string, variables map[string]any) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, fmt.Sprintf("graphql:%s", operation), trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(attribute.String("name", operation))
	if serialized, err := json.Marshal(variables); err == nil {
		span.SetAttributes(attribute.String("variables", string(serialized)))
	} else {
		span.SetAttributes(attribute.String("variables", "ERROR: failed to serialize variables."))
	}

	res, err := t.client.R().
		SetContext(ctx).
		SetHeader("content-type", "application/json").
		SetBody(graphqlRequest{Query: query, Variables: variables}).
		Post(t.url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return nil, &Error{Op: operation, Kind: KindTransport, Err: err}
	}
	span.SetAttributes(attribute.Int("http.status_code", res.StatusCode()))

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(res.Body(), &payload); err != nil {
		kind := KindShape
		if !res.IsSuccess() {
			kind = KindTransport
			err = fmt.Errorf("unexpected status code: %d", res.StatusCode())
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse json response")
		return nil, &Error{Op: operation, Kind: kind, Err: err}
	}

	if raw, ok := payload["errors"]; ok {
		upstreamErr := &UpstreamError{Message: firstErrorMessage(raw)}
		span.RecordError(upstreamErr)
		span.SetStatus(codes.Error, "upstream returned errors")
		return nil, &Error{Op: operation, Kind: KindUpstream, Err: upstreamErr}
	}

	if !res.IsSuccess() {
		err := fmt.Errorf("unexpected status code: %d", res.StatusCode())
		span.RecordError(err)
		span.SetStatus(codes.Error, "unexpected status code")
		return nil, &Error{Op: operation, Kind: KindTransport, Err: err}
	}

	data, ok := payload["data"]
	if !ok {
		err := errors.New("response has no data")
		span.RecordError(err)
		span.SetStatus(codes.Error, "response has no data")
		return nil, &Error{Op: operation, Kind: KindShape, Err: err}
	}

	return data, nil
}

func firstErrorMessage(raw json.RawMessage) string {
	var errs []graphqlError
	if err := json.Unmarshal(raw, &errs); err == nil && len(errs) > 0 {
		return errs[0].Message
	}
	return string(raw)
}
