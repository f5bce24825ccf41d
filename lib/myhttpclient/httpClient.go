package myhttpclient

import (
	"net/http"
	"time"

	"github.com/MarcGrol/marketplace/lib/mylog"
)

const defaultTimeout = 30 * time.Second

type loggingTransport struct {
	next   http.RoundTripper
	logger mylog.Logger
}

// New returns a client that logs every outbound call without its body: payloads may carry secrets.
func New(timeout time.Duration, logger mylog.Logger) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &loggingTransport{
			next:   http.DefaultTransport,
			logger: logger,
		},
	}
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c := req.Context()
	started := time.Now()

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		t.logger.Log(c, "", mylog.SeverityWarn, "HTTP %s %s%s failed after %s: %s", req.Method, req.URL.Host, req.URL.Path, time.Since(started), err)
		return nil, err
	}

	severity := mylog.SeverityDebug
	if resp.StatusCode >= http.StatusInternalServerError {
		severity = mylog.SeverityWarn
	}
	t.logger.Log(c, "", severity, "HTTP %s %s%s -> %d in %s", req.Method, req.URL.Host, req.URL.Path, resp.StatusCode, time.Since(started))

	return resp, nil
}
