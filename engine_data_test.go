package psd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineDataRoundTrip(t *testing.T) {
	nested := &EngineDict{}
	nested.Set("Inner", EngineInteger(1))

	d := &EngineDict{}
	d.Set("Name", EngineString("hi"))
	d.Set("Count", EngineInteger(5))
	d.Set("Ratio", EngineFloat(0.5))
	d.Set("Flag", EngineBool(true))
	d.Set("Nested", nested)
	d.Set("List", EngineArray{EngineInteger(1), EngineInteger(2)})

	encoded := WriteEngineData(d)
	got, err := ParseEngineData(encoded)
	require.NoError(t, err)

	name, ok := got.Get("Name")
	require.True(t, ok)
	assert.Equal(t, EngineString("hi"), name)

	count, ok := got.Get("Count")
	require.True(t, ok)
	assert.Equal(t, EngineInteger(5), count)

	ratio, ok := got.Get("Ratio")
	require.True(t, ok)
	assert.Equal(t, EngineFloat(0.5), ratio)

	flag, ok := got.Get("Flag")
	require.True(t, ok)
	assert.Equal(t, EngineBool(true), flag)

	nestedGot, ok := got.Get("Nested")
	require.True(t, ok)
	innerDict, ok := nestedGot.(*EngineDict)
	require.True(t, ok)
	inner, ok := innerDict.Get("Inner")
	require.True(t, ok)
	assert.Equal(t, EngineInteger(1), inner)

	listGot, ok := got.Get("List")
	require.True(t, ok)
	list, ok := listGot.(EngineArray)
	require.True(t, ok)
	assert.Equal(t, EngineArray{EngineInteger(1), EngineInteger(2)}, list)
}

func TestEngineDictSetOverwritesExistingKey(t *testing.T) {
	d := &EngineDict{}
	d.Set("K", EngineInteger(1))
	d.Set("K", EngineInteger(2))

	v, ok := d.Get("K")
	require.True(t, ok)
	assert.Equal(t, EngineInteger(2), v)
	assert.Len(t, d.Keys, 1)
}

func TestParseEngineDataMissingRootDict(t *testing.T) {
	_, err := ParseEngineData([]byte("5"))
	require.Error(t, err)
}

func TestFormatEngineFloat(t *testing.T) {
	assert.Equal(t, ".5", formatEngineFloat(0.5))
	assert.Equal(t, "-.5", formatEngineFloat(-0.5))
	assert.Equal(t, "2.0", formatEngineFloat(2.0))
}
