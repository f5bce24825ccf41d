package mycontext

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextFromHTTPRequest(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_PROJECT", "marketplace")

	parent, cancel := context.WithCancel(context.Background())
	request := httptest.NewRequest("POST", "/api/webhook/stripe", nil).WithContext(parent)
	request.Header.Set("X-Cloud-Trace-Context", "abc123/1;o=1")

	c := ContextFromHTTPRequest(request)
	cancel()

	assert.Error(t, parent.Err())
	assert.NoError(t, c.Err())
	assert.Equal(t, "projects/marketplace/traces/abc123", TraceFromContext(c))
}

func TestTraceFromContextWithoutTrace(t *testing.T) {
	assert.Equal(t, "", TraceFromContext(context.Background()))
}
