package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(&buf, "not-a-level", "json")
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())

	logger.Debug("hidden")
	logger.Info("visible")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "visible", entry["msg"])
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(&buf, "error", "json")

	LogError(logger, "invoices", "Create", "insert items", map[string]int{"invoice_id": 3}, errors.New("boom"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "boom", entry["msg"])
	assert.Equal(t, "invoices", entry["module"])
	assert.Equal(t, "Create", entry["funcName"])
	assert.Equal(t, "insert items", entry["context"])
	assert.Equal(t, map[string]any{"invoice_id": float64(3)}, entry["data"])
}

func TestGormLogger(t *testing.T) {
	assert.NotNil(t, GormLogger(Discard(), true))
	assert.NotNil(t, GormLogger(Discard(), false))
}
