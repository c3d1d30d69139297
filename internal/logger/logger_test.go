package logger

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, detailed bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, InitWithConfig(LogConfig{Level: "DEBUG", Format: "json", DetailedLogging: detailed, Output: &buf}))
	t.Cleanup(func() { _ = InitWithConfig(LogConfig{Level: "INFO", Format: "text"}) })
	return &buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		out = append(out, m)
	}
	return out
}

func TestWithFieldsAccumulate(t *testing.T) {
	buf := capture(t, true)

	ctx := WithFields(context.Background(), "request_id", "abc")
	ctx = WithFields(ctx, "scenario_id", "s1")
	Info(ctx, "hello", "k", 1)
	Info(context.Background(), "plain")

	got := lines(t, buf)
	require.Len(t, got, 2)
	assert.Equal(t, "hello", got[0]["msg"])
	assert.Equal(t, "abc", got[0]["request_id"])
	assert.Equal(t, "s1", got[0]["scenario_id"])
	assert.EqualValues(t, 1, got[0]["k"])
	assert.Contains(t, got[0], "source")
	assert.NotContains(t, got[1], "request_id")
}

func TestDebugNeedsDetailedLogging(t *testing.T) {
	buf := capture(t, false)
	Debug(context.Background(), "hidden")
	assert.Empty(t, buf.String())
}

func TestDomainEvents(t *testing.T) {
	buf := capture(t, false)

	Trade(context.Background(), "005930", "5", true, "0000117057")
	NewsCheck(context.Background(), "s1", 0, errors.New("timeout"))
	NewsCheck(context.Background(), "s1", 3, nil)

	got := lines(t, buf)
	require.Len(t, got, 3)
	assert.Equal(t, "TRADE", got[0]["type"])
	assert.Equal(t, true, got[0]["accepted"])
	assert.Equal(t, "NEWS", got[1]["type"])
	assert.Equal(t, "WARN", got[1]["level"])
	assert.Equal(t, "timeout", got[1]["error"])
	assert.Equal(t, "INFO", got[2]["level"])
	assert.EqualValues(t, 3, got[2]["items"])
}

func TestOperationTimerFailureIsLogged(t *testing.T) {
	buf := capture(t, false)

	op := StartOperation(context.Background(), "check_news", "scenario_id", "s1")
	op.EndWithError(errors.New("boom"))

	got := lines(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, "Operation failed", got[0]["msg"])
	assert.Equal(t, "check_news", got[0]["operation"])
	assert.Equal(t, "boom", got[0]["error"])
}
