package cmd

import (
	"testing"

	"github.com/Mohsinsiddi/w3transfer/internal/units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversion(t *testing.T) {
	tests := []struct {
		amount, unit string
		eth, gwei    string
		wei, hex     string
	}{
		{"1", "eth", "1", "1000000000", "1000000000000000000", "0xde0b6b3a7640000"},
		{"1.5", "ETH", "1.5", "1500000000", "1500000000000000000", "0x14d1120d7b160000"},
		{"50", "gwei", "0.00000005", "50", "50000000000", "0xba43b7400"},
		{"1000000000", "wei", "0.000000001", "1", "1000000000", "0x3b9aca00"},
		{"1", "wei", "0.000000000000000001", "0.000000001", "1", "0x1"},
		{"0", "eth", "0", "0", "0", "0x0"},
	}
	for _, tt := range tests {
		t.Run(tt.amount+tt.unit, func(t *testing.T) {
			pairs, err := conversion(tt.amount, tt.unit)
			require.NoError(t, err)
			assert.Equal(t, [][2]string{
				{"ETH", tt.eth},
				{"Gwei", tt.gwei},
				{"Wei", tt.wei},
				{"Hex", tt.hex},
			}, pairs)
		})
	}
}

func TestConversionRejectsInexactInput(t *testing.T) {
	_, err := conversion("0.0000000000000000001", "eth")
	assert.ErrorIs(t, err, units.ErrInvalidAmount)

	_, err = conversion("1.5", "wei")
	assert.ErrorIs(t, err, units.ErrInvalidAmount)

	_, err = conversion("-1", "gwei")
	assert.ErrorIs(t, err, units.ErrInvalidAmount)

	_, err = conversion("1", "finney")
	assert.ErrorContains(t, err, "unknown unit")
}
