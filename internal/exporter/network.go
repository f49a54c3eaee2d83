package exporter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/vk5qi/autorx-go/internal/httpclient"
)

// NetworkSink posts each accepted frame as JSON to an upload endpoint
// (e.g. a SondeHub-style telemetry aggregator). Requests go through
// httpclient.DoWithRetry so transient 429/5xx responses are retried with
// backoff rather than dropping the frame.
type NetworkSink struct {
	url    string
	client *http.Client
	policy httpclient.RetryPolicy
}

// NewNetworkSink builds a sink that posts to url using the package's
// default retry policy.
func NewNetworkSink(url string) *NetworkSink {
	return &NetworkSink{
		url:    url,
		client: httpclient.Default(),
		policy: httpclient.DefaultRetryPolicy,
	}
}

// Add posts f as a JSON object. Upload failures are logged, not returned:
// a station with no network connectivity must keep decoding and keep
// writing its CSV log regardless of uploader health.
func (s *NetworkSink) Add(f Frame) error {
	body, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("exporter: marshal frame: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("exporter: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpclient.DoWithRetry(ctx, s.client, req, s.policy)
	if err != nil {
		log.Printf("exporter: network sink upload to %s failed: %v", s.url, err)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		log.Printf("exporter: network sink upload to %s returned %d", s.url, resp.StatusCode)
	}
	return nil
}

// Close is a no-op: NetworkSink holds no resources beyond its http.Client.
func (s *NetworkSink) Close() error { return nil }
