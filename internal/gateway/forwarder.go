package gateway

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"
)

// Backend is one upstream chat endpoint.
type Backend struct {
	Name  string
	URL   string
	Token string
}

// upstreamResponse is a fully-buffered upstream reply, ready to relay.
type upstreamResponse struct {
	status      int
	contentType string
	body        []byte
}

// Forwarder sends an opaque chat payload to a backend with a bounded
// timeout. Any transport error, including a timeout or cancellation, is
// reported as a hard failure.
type Forwarder struct {
	client  *http.Client
	timeout time.Duration
}

func NewForwarder(timeout time.Duration) *Forwarder {
	return &Forwarder{
		client:  &http.Client{},
		timeout: timeout,
	}
}

func (f *Forwarder) Forward(ctx context.Context, backend Backend, body []byte, contentType string) (*upstreamResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, backend.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	if contentType == "" {
		contentType = "application/json"
	}
	req.Header.Set("Content-Type", contentType)
	if backend.Token != "" {
		req.Header.Set("Authorization", "Bearer "+backend.Token)
	}

	res, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	return &upstreamResponse{
		status:      res.StatusCode,
		contentType: res.Header.Get("Content-Type"),
		body:        respBody,
	}, nil
}
