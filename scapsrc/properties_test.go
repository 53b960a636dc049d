package scapsrc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProperties_Defaults(t *testing.T) {
	e := newTestElement(t, &scriptedBuilder{}, nil)

	assert.Equal(t, uint32(25), e.FPS())
	assert.True(t, e.ShowCursor())
	assert.False(t, e.PerformInternalPreroll())
}

func TestProperties_RoundTrip(t *testing.T) {
	e := newTestElement(t, &scriptedBuilder{}, nil)

	require.NoError(t, e.SetProperty(PropFPS, 30))
	require.NoError(t, e.SetProperty(PropShowCursor, false))
	require.NoError(t, e.SetProperty(PropPerformInternalPreroll, "true"))

	fps, err := e.Property(PropFPS)
	require.NoError(t, err)
	assert.Equal(t, uint32(30), fps)

	show, err := e.Property(PropShowCursor)
	require.NoError(t, err)
	assert.Equal(t, false, show)

	assert.True(t, e.PerformInternalPreroll())
	assert.Equal(t, Settings{FPS: 30, ShowCursor: false, PerformInternalPreroll: true}, e.Settings())
}

func TestProperties_Invalid(t *testing.T) {
	e := newTestElement(t, &scriptedBuilder{}, nil)

	for _, v := range []any{0, -1, "fast", int64(1<<32 + 30), uint64(math.MaxUint64), 30.9, "30.9", float32(-2)} {
		err := e.SetProperty(PropFPS, v)
		require.ErrorIs(t, err, ErrInvalidValue, "%v", v)
		assert.Equal(t, KindProperty, KindOf(err))
	}
	assert.Equal(t, uint32(DefaultFPS), e.FPS(), "failed writes leave the value alone")

	require.ErrorIs(t, e.SetProperty(PropShowCursor, "maybe"), ErrInvalidValue)

	require.ErrorIs(t, e.SetProperty("brightness", 1), ErrUnknownProperty)
	_, err := e.Property("brightness")
	require.ErrorIs(t, err, ErrUnknownProperty)
}

func TestProperties_FPSHasNoUpperBound(t *testing.T) {
	e := newTestElement(t, &scriptedBuilder{}, nil)

	require.NoError(t, e.SetProperty(PropFPS, 1001))
	assert.Equal(t, uint32(1001), e.FPS())

	require.NoError(t, e.SetProperty(PropFPS, uint64(math.MaxUint32)))
	assert.Equal(t, uint32(math.MaxUint32), e.FPS())

	require.NoError(t, e.SetProperty(PropFPS, 60.0))
	assert.Equal(t, uint32(60), e.FPS())
}

func TestProperties_SnakeCaseNames(t *testing.T) {
	e := newTestElement(t, &scriptedBuilder{}, nil)

	require.NoError(t, e.SetProperty("show_cursor", false))
	require.NoError(t, e.SetProperty("perform_internal_preroll", true))
	assert.False(t, e.ShowCursor())
	assert.True(t, e.PerformInternalPreroll())

	show, err := e.Property("show_cursor")
	require.NoError(t, err)
	assert.Equal(t, false, show)

	spec, ok := e.Descriptor().Property("perform_internal_preroll")
	require.True(t, ok)
	assert.Equal(t, PropPerformInternalPreroll, spec.Name)
}

func TestProperties_SetSettings(t *testing.T) {
	e := newTestElement(t, &scriptedBuilder{}, nil)

	require.ErrorIs(t, e.SetSettings(Settings{}), ErrInvalidValue)

	want := Settings{FPS: 10, ShowCursor: false, PerformInternalPreroll: true}
	require.NoError(t, e.SetSettings(want))
	assert.Equal(t, want, e.Settings())
}

func TestProperties_WritableWhileStreaming(t *testing.T) {
	e := newTestElement(t, &scriptedBuilder{backends: []*scriptedBackend{newScriptedBackend()}}, nil)
	require.NoError(t, e.SetState(StatePlaying))

	require.NoError(t, e.SetFPS(60))
	assert.Equal(t, uint32(60), e.FPS())
}
