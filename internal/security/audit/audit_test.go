package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLogin(t *testing.T) {
	var buf bytes.Buffer
	al := NewLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	ctx := WithRequestID(context.Background(), "req-1")
	al.LogLogin(ctx, "alice", false, "wrong_password")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "login", rec["action"])
	assert.Equal(t, "failure", rec["status"])
	assert.Equal(t, "wrong_password", rec["details"])
	assert.Equal(t, "alice", rec["username"])
	assert.Equal(t, "req-1", rec["request_id"])
	assert.Equal(t, "audit", rec["component"])
}

func TestRequestIDMissing(t *testing.T) {
	assert.Empty(t, RequestID(context.Background()))
}
