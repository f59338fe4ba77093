package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_PanicsBeforeInit(t *testing.T) {
	Reset()
	assert.Panics(t, func() { Get() })
}

func TestInit_FirstCallWins(t *testing.T) {
	Reset()
	defer Reset()
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var first, second bytes.Buffer
	Init(Options{Level: "warn", Output: &first, Service: "bridge"})
	Init(Options{Level: "debug", Output: &second})

	dropLog := Component("tailor_flow")
	dropLog.Info().Msg("dropped")
	keepLog := Component("tailor_flow")
	keepLog.Warn().Msg("kept")

	assert.Zero(t, second.Len())
	var entry map[string]any
	require.NoError(t, json.Unmarshal(first.Bytes(), &entry))
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "bridge", entry["service"])
	assert.Equal(t, "tailor_flow", entry["component"])
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		" warn ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLevel(in), in)
	}
}
