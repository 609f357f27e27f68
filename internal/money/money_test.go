package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCents(t *testing.T) {
	tests := []struct {
		name    string
		cents   string
		want    string
		wantErr bool
	}{
		{name: "positive", cents: "2550", want: "$25.50"},
		{name: "negative", cents: "-2500", want: "-$25.00"},
		{name: "single cent", cents: "1", want: "$0.01"},
		{name: "negative cents only", cents: "-7", want: "-$0.07"},
		{name: "zero", cents: "0", want: "$0.00"},
		{name: "large value keeps precision", cents: "123456789012345678", want: "$1234567890123456.78"},
		{name: "surrounding whitespace", cents: " 100 ", want: "$1.00"},
		{name: "empty", cents: "", wantErr: true},
		{name: "explicit plus sign", cents: "+100", want: "$1.00"},
		{name: "fractional cents", cents: "25.5", wantErr: true},
		{name: "major units with zero cents", cents: "25.00", wantErr: true},
		{name: "scientific notation", cents: "1e3", wantErr: true},
		{name: "inner whitespace", cents: "1 000", wantErr: true},
		{name: "sign only", cents: "-", wantErr: true},
		{name: "not a number", cents: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatCents(tt.cents)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSign(t *testing.T) {
	s, err := Sign("-2500")
	require.NoError(t, err)
	assert.Equal(t, -1, s)

	s, err = Sign("0")
	require.NoError(t, err)
	assert.Equal(t, 0, s)

	s, err = Sign("10")
	require.NoError(t, err)
	assert.Equal(t, 1, s)

	_, err = Sign("ten")
	require.Error(t, err)
}

func TestToCentsString(t *testing.T) {
	assert.Equal(t, "2550", ToCentsString(decimal.RequireFromString("25.5")))
	assert.Equal(t, "-1999", ToCentsString(decimal.RequireFromString("-19.99")))
	assert.Equal(t, "1", ToCentsString(decimal.RequireFromString("0.005")))

	cents, err := FromMajorString("42.10")
	require.NoError(t, err)
	assert.Equal(t, "4210", cents)

	formatted, err := FormatCents(cents)
	require.NoError(t, err)
	assert.Equal(t, "$42.10", formatted)
}
