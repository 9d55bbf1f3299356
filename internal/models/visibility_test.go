package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisibility_JSONRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		kind     VisibilityKind
		miles    int
		text     string
		str      string
		wantJSON string
	}{
		{name: "numeric", in: `6`, kind: VisibilityNumeric, miles: 6, str: "6", wantJSON: `6`},
		{name: "zero miles", in: `0`, kind: VisibilityNumeric, miles: 0, str: "0", wantJSON: `0`},
		{name: "plus token", in: `"6+"`, kind: VisibilityText, text: "6+", str: "6+", wantJSON: `"6+"`},
		{name: "numeric string stays text", in: `"6"`, kind: VisibilityText, text: "6", str: "6", wantJSON: `"6"`},
		{name: "null", in: `null`, kind: VisibilityUnset, str: "", wantJSON: `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Visibility
			require.NoError(t, json.Unmarshal([]byte(tt.in), &v))

			assert.Equal(t, tt.kind, v.Kind())
			assert.Equal(t, tt.str, v.String())

			miles, isNumeric := v.Miles()
			assert.Equal(t, tt.kind == VisibilityNumeric, isNumeric)
			assert.Equal(t, tt.miles, miles)

			text, isText := v.Text()
			assert.Equal(t, tt.kind == VisibilityText, isText)
			assert.Equal(t, tt.text, text)

			out, err := json.Marshal(v)
			require.NoError(t, err)
			assert.JSONEq(t, tt.wantJSON, string(out))
		})
	}
}

func TestVisibility_UnmarshalRejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"fractional miles", `0.5`},
		{"beyond int64", `1e19`},
		{"boolean", `true`},
		{"object", `{"miles": 6}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NumericVisibility(3)
			err := json.Unmarshal([]byte(tt.in), &v)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
			assert.Equal(t, "visib", ve.Field)
			assert.Equal(t, ReasonWrongType, ve.Reason)
			assert.Equal(t, VisibilityNumeric, v.Kind(), "failed decode must leave the value untouched")
		})
	}
}

func TestVisibility_InsideForecast(t *testing.T) {
	fc := Forecast{Visib: NumericVisibility(6)}
	out, err := json.Marshal(fc)
	require.NoError(t, err)

	var back Forecast
	require.NoError(t, json.Unmarshal(out, &back))
	miles, ok := back.Visib.Miles()
	require.True(t, ok)
	assert.Equal(t, 6, miles)
}
