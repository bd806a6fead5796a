package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

const DefaultTimeout = 30 * time.Second

// Transport performs one live gateway call and returns the raw envelope body.
type Transport interface {
	Do(ctx context.Context, payload map[string]interface{}) ([]byte, error)
}

// HTTPTransport posts the payload as JSON to the gateway endpoint with a bearer token.
type HTTPTransport struct {
	endpoint string
	token    string
	client   *http.Client
}

func NewHTTPTransport(endpoint, token string, timeout time.Duration) (*HTTPTransport, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, newError(ErrKindConfig, "gateway endpoint is not configured", nil)
	}
	if strings.TrimSpace(token) == "" {
		return nil, newError(ErrKindConfig, "gateway token is not configured", nil)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPTransport{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

func (t *HTTPTransport) Do(ctx context.Context, payload map[string]interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, newError(ErrKindMalformed, "failed to encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, newError(ErrKindConfig, "invalid gateway endpoint", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.token)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, newError(ErrKindConnection, connectionMessage(err), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(ErrKindConnection, "failed to read gateway response", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return respBody, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, &Error{Kind: ErrKindAuth, Status: resp.StatusCode, Message: "authentication failed, check the gateway token"}
	case resp.StatusCode == http.StatusNotFound:
		return nil, &Error{Kind: ErrKindNotFound, Status: resp.StatusCode, Message: "gateway endpoint not found"}
	default:
		return nil, &Error{Kind: ErrKindHTTPStatus, Status: resp.StatusCode, Message: snippet(respBody)}
	}
}

func connectionMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "request timed out"
	}
	return fmt.Sprintf("connection failed: %v", err)
}

func snippet(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// unavailableTransport fails every call with the error that kept the real transport from being built.
type unavailableTransport struct{ err *Error }

// NewUnavailableTransport keeps the service running without a usable gateway;
// each call reports err as a config error.
func NewUnavailableTransport(err error) Transport {
	gwErr := asGatewayError(err)
	if gwErr.Kind != ErrKindConfig {
		gwErr = newError(ErrKindConfig, gwErr.Message, err)
	}
	return unavailableTransport{err: gwErr}
}

func (t unavailableTransport) Do(context.Context, map[string]interface{}) ([]byte, error) {
	return nil, t.err
}
