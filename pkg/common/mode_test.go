package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEnvironment(t *testing.T) {
	tests := []struct {
		input    string
		expected Environment
		wantErr  bool
	}{
		{"prod", MainNet, false},
		{"mainnet", MainNet, false},
		{"test", TestNet, false},
		{"testnet", TestNet, false},
		{"dev", UnsafeDevNet, false},
		{"devnet", UnsafeDevNet, false},
		{"unsafedevnet", UnsafeDevNet, false},
		{"unit-test", GoTest, false},
		{"gotest", GoTest, false},
		{"invalid", UnsafeDevNet, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseEnvironment(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseOperatingMode(t *testing.T) {
	tests := []struct {
		input    string
		expected OperatingMode
		wantErr  bool
	}{
		{"normal", Normal, false},
		{"Resume", Normal, false},
		{"halted", Halted, false},
		{"HALT", Halted, false},
		{"paused", Halted, false},
		{"stopped", Normal, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseOperatingMode(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expected, result)
			assert.Equal(t, tt.expected == Halted, result.IsHalted())
		})
	}
}

func TestOperatingModeString(t *testing.T) {
	assert.Equal(t, "Normal", Normal.String())
	assert.Equal(t, "Halted", Halted.String())
	assert.Equal(t, "Unknown(7)", OperatingMode(7).String())
}
