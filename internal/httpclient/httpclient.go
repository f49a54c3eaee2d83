package httpclient

import (
	"net/http"
	"time"
)

// Default returns an HTTP client with timeouts tight enough that an
// unreachable upload endpoint (the NetworkSink's telemetry aggregator) never
// stalls a Decoder's frame-handling goroutine. A station with dozens of
// flights decoding at once posts small JSON bodies one frame at a time, so
// there is no streaming variant to size for here — every request is
// expected to complete in well under the timeout or fail outright.
func Default() *http.Client {
	return &http.Client{
		Timeout: 15 * time.Second,
		Transport: &http.Transport{
			ResponseHeaderTimeout: 10 * time.Second,
			ExpectContinueTimeout: 2 * time.Second,
			IdleConnTimeout:       30 * time.Second,
		},
	}
}
