package sl_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingoboss/wingoboss-api/internal/lib/sl"
)

func TestErr_ReturnsCorrectAttr(t *testing.T) {
	err := errors.New("gateway timeout")
	attr := sl.Err(err)

	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, slog.StringValue("gateway timeout"), attr.Value)
}

func TestErr_NilError(t *testing.T) {
	assert.Panics(t, func() {
		_ = sl.Err(nil)
	})
}

func TestNewWithWriter_ProdWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := sl.NewWithWriter("prod", &buf)

	log.Debug("hidden")
	log.Info("order created", slog.String("order_id", "ORDER_1"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "order created", entry["msg"])
	assert.Equal(t, "ORDER_1", entry["order_id"])
}

func TestNewWithWriter_LocalIsDebug(t *testing.T) {
	var buf bytes.Buffer
	log := sl.NewWithWriter("local", &buf)

	log.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}
