package mylog

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MarcGrol/marketplace/lib/mycontext"
)

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewFromZap("fulfillment", zap.New(core))

	t.Run("severity and aggregate", func(t *testing.T) {
		logger.Log(context.Background(), "cs_123", SeverityWarn, "stock of %s is %d", "p1", -1)

		entries := logs.TakeAll()
		assert.Len(t, entries, 1)
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
		assert.Equal(t, "stock of p1 is -1", entries[0].Message)
		assert.Equal(t, "cs_123", entries[0].ContextMap()["aggregate"])
		assert.Equal(t, "fulfillment", entries[0].ContextMap()["component"])
	})

	t.Run("trace from request", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Cloud-Trace-Context", "abc/1;o=1")
		c := mycontext.ContextFromHTTPRequest(req)

		logger.Log(c, "", SeverityError, "boom")

		entries := logs.TakeAll()
		assert.Len(t, entries, 1)
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
		assert.Contains(t, entries[0].ContextMap()["logging.googleapis.com/trace"], "/traces/abc")
		assert.NotContains(t, entries[0].ContextMap(), "aggregate")
	})
}
