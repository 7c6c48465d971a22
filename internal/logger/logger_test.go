package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocal(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("local", &buf)

	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	log.Debug("отладка")
	assert.Contains(t, buf.String(), "отладка")
}

func TestNewProd(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("prod", &buf)

	log.Debug("не должно попасть")
	assert.Empty(t, buf.String())

	log.WithField("component", "feed").Info("feed page served")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "feed", entry["component"])
	assert.Equal(t, "feed page served", entry["msg"])
}
