package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumberFloat(t *testing.T) {
	v, err := NumberOf(25100.5).Float()
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 25100.5, *v)

	// zero is a real quote, not "no quote"
	v, err = NumberOf(0).Float()
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 0.0, *v)

	for _, raw := range []string{"", "-", "  "} {
		v, err = NumberText(raw).Float()
		require.NoError(t, err, "raw %q", raw)
		assert.Nil(t, v, "raw %q", raw)
	}

	v, err = (Number{}).Float()
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = NumberText("25,100").Float()
	assert.Error(t, err, "thousands separators are the crawler's job to strip")
}

func TestNumberUnmarshalJSON(t *testing.T) {
	var obs struct {
		Sell Number `json:"sell"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"sell": 25500}`), &obs))
	v, err := obs.Sell.Float()
	require.NoError(t, err)
	assert.Equal(t, 25500.0, *v)

	require.NoError(t, json.Unmarshal([]byte(`{"sell": "25500.5"}`), &obs))
	v, err = obs.Sell.Float()
	require.NoError(t, err)
	assert.Equal(t, 25500.5, *v)

	require.NoError(t, json.Unmarshal([]byte(`{"sell": null}`), &obs))
	v, err = obs.Sell.Float()
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, json.Unmarshal([]byte(`{"sell": "-"}`), &obs))
	v, err = obs.Sell.Float()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestNumberMarshalJSON(t *testing.T) {
	b, err := json.Marshal(NumberOf(25500.5))
	require.NoError(t, err)
	assert.Equal(t, `25500.5`, string(b))

	for _, n := range []Number{{}, NumberText(""), NumberText("-")} {
		b, err = json.Marshal(n)
		require.NoError(t, err)
		assert.Equal(t, `null`, string(b))
	}

	// garbage stays garbage so a downstream normalizer still rejects it
	b, err = json.Marshal(NumberText("N/A"))
	require.NoError(t, err)
	assert.Equal(t, `"N/A"`, string(b))
}

func TestNumberRoundTripKeepsGarbage(t *testing.T) {
	in := struct {
		Sell Number `json:"sell"`
	}{Sell: NumberText("N/A")}

	b, err := json.Marshal(in)
	require.NoError(t, err)

	var out struct {
		Sell Number `json:"sell"`
	}
	require.NoError(t, json.Unmarshal(b, &out))
	_, err = out.Sell.Float()
	assert.Error(t, err)
}
