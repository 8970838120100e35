package common

import (
	"fmt"
	"strings"
)

type Environment string

const (
	MainNet      Environment = "prod"
	TestNet      Environment = "test"
	UnsafeDevNet Environment = "dev" // local devnet; proofs are not verified
	GoTest       Environment = "unit-test"
)

// ParseEnvironment parses a string into the corresponding Environment value, allowing various reasonable variations.
func ParseEnvironment(str string) (Environment, error) {
	str = strings.ToLower(str)
	if str == "prod" || str == "mainnet" {
		return MainNet, nil
	}
	if str == "test" || str == "testnet" {
		return TestNet, nil
	}
	if str == "dev" || str == "devnet" || str == "unsafedevnet" {
		return UnsafeDevNet, nil
	}
	if str == "unit-test" || str == "gotest" {
		return GoTest, nil
	}
	return UnsafeDevNet, fmt.Errorf("invalid environment string: %s", str)
}

// OperatingMode gates inbound message processing. The zero value is Normal.
type OperatingMode uint8

const (
	Normal OperatingMode = iota
	Halted
)

func (m OperatingMode) IsHalted() bool {
	return m == Halted
}

func (m OperatingMode) String() string {
	switch m {
	case Normal:
		return "Normal"
	case Halted:
		return "Halted"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(m))
	}
}

// ParseOperatingMode parses "normal" / "halted" and their common aliases.
func ParseOperatingMode(str string) (OperatingMode, error) {
	str = strings.ToLower(str)
	if str == "normal" || str == "resume" || str == "running" {
		return Normal, nil
	}
	if str == "halted" || str == "halt" || str == "paused" {
		return Halted, nil
	}
	return Normal, fmt.Errorf("invalid operating mode string: %s", str)
}
