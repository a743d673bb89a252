package psd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayerEffectsRoundTrip(t *testing.T) {
	effects := &LayerEffects{
		Version: 0,
		CommonState: &EffectCommonState{
			Version: 0,
			Visible: true,
		},
		DropShadow: &EffectShadow{
			Version:   0,
			Blur:      5,
			Intensity: 100,
			Angle:     120,
			Distance:  10,
			Color:     EffectColor{Space: 0, Values: [4]int16{0, 255, 0, 0}},
			BlendMode: "Mltp",
			Enabled:   true,
		},
		OuterGlow: &EffectGlow{
			Version:   2,
			Blur:      3,
			Intensity: 50,
			Color:     EffectColor{Space: 0, Values: [4]int16{0, 0, 255, 0}},
			BlendMode: "Scrn",
			Enabled:   true,
			Opacity:   200,
			HasV2:     true,
			Invert:    true,
		},
		Bevel: &EffectBevel{
			Version:            2,
			Angle:               30,
			Depth:               10,
			Blur:                2,
			HighlightBlendMode:  "Scrn",
			ShadowBlendMode:     "Mltp",
			HighlightColor:      EffectColor{Space: 0, Values: [4]int16{255, 255, 255, 0}},
			ShadowColor:         EffectColor{Space: 0, Values: [4]int16{0, 0, 0, 0}},
			BevelStyle:          1,
			HighlightOpacity:    255,
			ShadowOpacity:       255,
			Enabled:             true,
			Direction:           1,
			HasV2:               true,
			RealHighlightColor:  EffectColor{Space: 0, Values: [4]int16{255, 255, 255, 0}},
			RealShadowColor:     EffectColor{Space: 0, Values: [4]int16{0, 0, 0, 0}},
		},
		SolidFill: &EffectSolidFill{
			Version:   2,
			BlendMode: "Nrml",
			Color:     EffectColor{Space: 0, Values: [4]int16{255, 0, 0, 0}},
			Opacity:   255,
			Enabled:   true,
		},
	}

	data, err := WriteLayerEffects(effects)
	require.NoError(t, err)

	got, err := ParseLayerEffects(data)
	require.NoError(t, err)

	require.NotNil(t, got.CommonState)
	assert.True(t, got.CommonState.Visible)

	require.NotNil(t, got.DropShadow)
	assert.Equal(t, effects.DropShadow.Blur, got.DropShadow.Blur)
	assert.Equal(t, effects.DropShadow.Distance, got.DropShadow.Distance)
	assert.Equal(t, "Mltp", got.DropShadow.BlendMode)
	assert.True(t, got.DropShadow.Enabled)

	require.NotNil(t, got.OuterGlow)
	assert.True(t, got.OuterGlow.HasV2)
	assert.True(t, got.OuterGlow.Invert)
	assert.Equal(t, effects.OuterGlow.Color, got.OuterGlow.Color)

	require.NotNil(t, got.Bevel)
	assert.True(t, got.Bevel.HasV2)
	assert.Equal(t, byte(1), got.Bevel.BevelStyle)
	assert.Equal(t, "Scrn", got.Bevel.HighlightBlendMode)
	assert.Equal(t, "Mltp", got.Bevel.ShadowBlendMode)

	require.NotNil(t, got.SolidFill)
	assert.Equal(t, "Nrml", got.SolidFill.BlendMode)
	assert.Equal(t, effects.SolidFill.Color, got.SolidFill.Color)
}

func TestLayerEffectsBadSignature(t *testing.T) {
	buf := newBufferWriter()
	w := NewWriter(buf)
	require.NoError(t, w.WriteInt16(0))
	require.NoError(t, w.WriteInt16(1))
	_, err := w.Write([]byte("XXXX"))
	require.NoError(t, err)

	_, err = ParseLayerEffects(buf.Bytes())
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
}

func TestLayerEffectsEmpty(t *testing.T) {
	effects := &LayerEffects{Version: 0}
	data, err := WriteLayerEffects(effects)
	require.NoError(t, err)

	got, err := ParseLayerEffects(data)
	require.NoError(t, err)
	assert.Nil(t, got.CommonState)
	assert.Nil(t, got.DropShadow)
	assert.Nil(t, got.Bevel)
}
