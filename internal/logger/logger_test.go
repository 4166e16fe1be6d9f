package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func captureOutput() (*bytes.Buffer, func()) {
	buf := new(bytes.Buffer)

	mu.Lock()
	originalOutput := output
	originalColor := useColor
	output = buf
	useColor = false
	mu.Unlock()
	reconfigure()

	return buf, func() {
		mu.Lock()
		output = originalOutput
		useColor = originalColor
		mu.Unlock()
		reconfigure()
	}
}

func TestLevelFiltering(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("WARN")
	Debug("debug message")
	Info("info message")
	Warn("warn message", KeyNetworkID, "house")

	out := buf.String()
	require.NotContains(t, out, "debug message")
	require.NotContains(t, out, "info message")
	require.Contains(t, out, "warn message")
	require.Contains(t, out, "network_id=house")
}

func TestJSONFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("DEBUG")
	SetFormat("json")
	defer SetFormat("text")

	Info("frame decoded", KeyPGN, uint32(61444), KeyNetworkID, "chassis")

	line := strings.TrimSpace(buf.String())
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &decoded))
	require.Equal(t, "frame decoded", decoded["msg"])
	require.EqualValues(t, 61444, decoded[KeyPGN])
	require.Equal(t, "chassis", decoded[KeyNetworkID])
}

func TestLogContextFields(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("DEBUG")

	lc := NewLogContext("house").WithPGN(0x1FEE5, 0x17).WithEntity("tank_fresh")
	ctx := WithContext(context.Background(), lc)
	InfoCtx(ctx, "multiplex reassembled")

	out := buf.String()
	require.Contains(t, out, "multiplex reassembled")
}
