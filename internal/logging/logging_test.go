package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_Levels(t *testing.T) {
	cases := []struct {
		level     string
		debugSeen bool
		infoSeen  bool
	}{
		{"debug", true, true},
		{"INFO", false, true},
		{" warn ", false, false},
		{"", false, true},
		{"nonsense", false, true},
	}

	for _, tc := range cases {
		var buf bytes.Buffer
		log := NewWithWriter(&buf, tc.level)

		log.Debug().Msg("d")
		assert.Equal(t, tc.debugSeen, bytes.Contains(buf.Bytes(), []byte(`"message":"d"`)), "level %q", tc.level)

		buf.Reset()
		log.Info().Msg("i")
		assert.Equal(t, tc.infoSeen, buf.Len() > 0, "level %q", tc.level)
	}
}

func TestNewWithWriter_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info")
	log.Info().Str("component", "api").Msg("started")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "api", entry["component"])
	assert.Equal(t, "started", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Contains(t, entry, "time")
}
