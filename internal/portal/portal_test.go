package portal

import (
	"regexp"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewToken(t *testing.T) {
	a, b := newToken(), newToken()
	assert.NotEqual(t, a, b)
	// Tokens end up as object path elements.
	assert.Regexp(t, regexp.MustCompile(`^[A-Za-z0-9_]+$`), a)
	assert.True(t, dbus.ObjectPath("/org/freedesktop/portal/desktop/request/1_42/"+a).IsValid())
}

func TestParseStreams(t *testing.T) {
	raw := []any{
		[]any{
			uint32(42),
			map[string]dbus.Variant{
				"position":    dbus.MakeVariant([]int32{0, 0}),
				"size":        dbus.MakeVariant([]any{int32(1920), int32(1080)}),
				"source_type": dbus.MakeVariant(uint32(SourceTypeMonitor)),
				"id":          dbus.MakeVariant("HDMI-1"),
			},
		},
		[]any{"not-a-node", map[string]dbus.Variant{}},
		[]any{uint32(43)},
		[]any{uint32(44), map[string]dbus.Variant{"mapping_id": dbus.MakeVariant("win")}},
	}

	streams := parseStreams(raw)
	require.Len(t, streams, 2)
	assert.Equal(t, Stream{
		NodeID:     42,
		Size:       [2]int32{1920, 1080},
		SourceType: SourceTypeMonitor,
		ID:         "HDMI-1",
	}, streams[0])
	assert.Equal(t, Stream{NodeID: 44, MappingID: "win"}, streams[1])

	assert.Nil(t, parseStreams("garbage"))
}

func TestParseInt32Pair(t *testing.T) {
	pair, ok := parseInt32Pair([]int32{3, 4})
	require.True(t, ok)
	assert.Equal(t, [2]int32{3, 4}, pair)

	_, ok = parseInt32Pair([]any{int32(1)})
	assert.False(t, ok)
	_, ok = parseInt32Pair([]any{int32(1), "2"})
	assert.False(t, ok)
	_, ok = parseInt32Pair(7)
	assert.False(t, ok)
}

func TestParseResponse(t *testing.T) {
	results := map[string]dbus.Variant{"session_handle": dbus.MakeVariant("/s/1")}

	got, err := parseResponse("CreateSession", &dbus.Signal{Body: []any{uint32(Success), results}})
	require.NoError(t, err)
	assert.Equal(t, results, got)

	_, err = parseResponse("Start", &dbus.Signal{Body: []any{uint32(Cancelled), results}})
	require.ErrorIs(t, err, ErrCancelled)

	_, err = parseResponse("Start", &dbus.Signal{Body: []any{uint32(Ended), results}})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCancelled)

	_, err = parseResponse("Start", &dbus.Signal{Body: []any{uint32(0)}})
	require.ErrorIs(t, err, ErrUnexpectedResponse)

	_, err = parseResponse("Start", &dbus.Signal{Body: []any{"0", results}})
	require.ErrorIs(t, err, ErrUnexpectedResponse)
}
