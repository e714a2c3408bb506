package main

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLogger_InstallsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	log := newLogger(&buf, slog.LevelInfo)

	slog.Debug("requesting weather data")
	assert.Empty(t, buf.String())

	slog.Warn("lock release failed", "city", "Karachi")
	assert.Contains(t, buf.String(), `"msg":"lock release failed"`)
	assert.Contains(t, buf.String(), `"city":"Karachi"`)

	buf.Reset()
	log.Info("server starting")
	assert.Contains(t, buf.String(), `"level":"INFO"`)
}
