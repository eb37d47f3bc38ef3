package httputil

import "net/http"

// UserAgentTransport replaces DefaultUserAgent on outgoing requests with
// UserAgent. Requests that set their own agent are left alone.
type UserAgentTransport struct {
	Base      http.RoundTripper // http.DefaultTransport when nil
	UserAgent string
}

// RoundTrip implements http.RoundTripper.
func (t *UserAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if t.UserAgent == "" {
		return base.RoundTrip(req)
	}
	if ua := req.Header.Get("User-Agent"); ua == "" || ua == DefaultUserAgent {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.UserAgent)
	}
	return base.RoundTrip(req)
}
