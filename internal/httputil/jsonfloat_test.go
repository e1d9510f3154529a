package httputil

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFloatMarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   float64
		want string
	}{
		{"finite", 2.5e-7, "2.5e-07"},
		{"positive infinity", math.Inf(1), `"Infinity"`},
		{"negative infinity", math.Inf(-1), `"-Infinity"`},
		{"nan", math.NaN(), `"NaN"`},
		{"zero", 0, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(JSONFloat(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestJSONFloatUnmarshal(t *testing.T) {
	t.Parallel()

	t.Run("round trips sentinels", func(t *testing.T) {
		t.Parallel()
		for _, v := range []float64{1.5, math.Inf(1), math.Inf(-1)} {
			data, err := json.Marshal(JSONFloat(v))
			require.NoError(t, err)
			var got JSONFloat
			require.NoError(t, json.Unmarshal(data, &got))
			assert.Equal(t, v, float64(got))
		}

		var got JSONFloat
		require.NoError(t, json.Unmarshal([]byte(`"NaN"`), &got))
		assert.True(t, math.IsNaN(float64(got)))
	})

	t.Run("rejects unknown sentinels", func(t *testing.T) {
		t.Parallel()
		var got JSONFloat
		assert.Error(t, json.Unmarshal([]byte(`"huge"`), &got))
		assert.Error(t, json.Unmarshal([]byte(`true`), &got))
	})
}

func TestFloats(t *testing.T) {
	t.Parallel()
	out := Floats([]float64{1, math.Inf(1)})
	require.Len(t, out, 2)
	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Equal(t, `[1,"Infinity"]`, string(data))
}

func TestFormatFloat(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Infinity", FormatFloat(math.Inf(1)))
	assert.Equal(t, "-Infinity", FormatFloat(math.Inf(-1)))
	assert.Equal(t, "NaN", FormatFloat(math.NaN()))
	assert.Equal(t, "2.222e-07", FormatFloat(2.222e-7))
}
