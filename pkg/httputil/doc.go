// Package httputil provides HTTP plumbing shared by all fetchers.
//
// # Overview
//
//   - [Get]: issue a GET request with standard headers, status classification
//     and automatic retry of transient failures
//   - [Retry]: retry with exponential backoff for errors wrapped in [RetryableError]
//   - [PoliteTransport]: an [http.RoundTripper] that serializes requests per
//     host and spaces them by a fixed delay
//
// # Retry
//
// Only failures that happen before a response body is handed to the caller
// are retried: connection errors and 5xx responses. Once streaming starts,
// a failure aborts the fetch and the next poll cycle starts over.
//
// # Politeness
//
// Many sources share a handful of mirrors. [PoliteTransport] keeps at most one
// request in flight per host, and waits Delay after a response body is closed
// before the next request to that host is sent:
//
//	client := &http.Client{Transport: httputil.NewPoliteTransport(nil, time.Second)}
package httputil
