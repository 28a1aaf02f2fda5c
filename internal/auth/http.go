package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Authority is the remote source of truth for permissions and keyspace
// ownership.
type Authority interface {
	Fetcher
	AddKeyspace(ctx context.Context, subject, credential, keyspace string) error
	RemoveKeyspace(ctx context.Context, subject, credential, keyspace string) error
}

// HTTPAuthority talks to a REST permission service. The credential is sent
// as a bearer token.
//
//	GET    {base}/subjects/{subject}/operations
//	POST   {base}/subjects/{subject}/keyspaces        {"keyspace": "..."}
//	DELETE {base}/subjects/{subject}/keyspaces/{keyspace}
type HTTPAuthority struct {
	base   *url.URL
	client *http.Client
}

var _ Authority = (*HTTPAuthority)(nil)

// NewHTTPAuthority creates a client for the service at baseURL. A nil client
// selects one with the given timeout; a zero timeout leaves the transport's
// own limits in place.
func NewHTTPAuthority(baseURL string, client *http.Client, timeout time.Duration) (*HTTPAuthority, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid authority url %q", baseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Newf("authority url %q must be http or https", baseURL)
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPAuthority{base: u, client: client}, nil
}

type operationsResponse struct {
	Operations []string `json:"operations"`
}

// AllowedOperations fetches the subject's operations. The body is either
// {"operations": [...]} or a bare array.
func (a *HTTPAuthority) AllowedOperations(ctx context.Context, subject, credential string) ([]string, error) {
	body, err := a.do(ctx, http.MethodGet, credential, nil, "subjects", subject, "operations")
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var ops []string
		if err := json.Unmarshal(trimmed, &ops); err != nil {
			return nil, errors.Wrap(err, "failed to decode operations")
		}
		return ops, nil
	}
	var resp operationsResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, errors.Wrap(err, "failed to decode operations")
	}
	return resp.Operations, nil
}

func (a *HTTPAuthority) AddKeyspace(ctx context.Context, subject, credential, keyspace string) error {
	payload, err := json.Marshal(map[string]string{"keyspace": keyspace})
	if err != nil {
		return err
	}
	_, err = a.do(ctx, http.MethodPost, credential, payload, "subjects", subject, "keyspaces")
	return err
}

func (a *HTTPAuthority) RemoveKeyspace(ctx context.Context, subject, credential, keyspace string) error {
	_, err := a.do(ctx, http.MethodDelete, credential, nil, "subjects", subject, "keyspaces", keyspace)
	return err
}

func (a *HTTPAuthority) do(ctx context.Context, method, credential string, payload []byte, segments ...string) ([]byte, error) {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	target := a.base.String() + "/" + strings.Join(escaped, "/")

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build authority request")
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, target)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read authority response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Newf("%s %s: unexpected status %d: %s",
			method, target, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}
