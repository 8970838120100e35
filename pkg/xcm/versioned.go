package xcm

import "fmt"

// Version of the instruction set a program was encoded with.
type Version uint8

const (
	V3 Version = 3
	V4 Version = 4
	V5 Version = 5

	// CurrentVersion is the working representation every decoded program is converted to.
	CurrentVersion = V4
)

var SupportedVersions = map[Version]bool{
	V3: true,
	V4: true,
	V5: true,
}

// Versioned is a program tagged with the instruction-set version it was encoded with.
type Versioned struct {
	Version Version
	Program Program
}

// Convert returns the program in the CurrentVersion representation.
func (v *Versioned) Convert() (Program, error) {
	switch v.Version {
	case V3, V4:
		return v.Program, nil
	case V5:
		if op, ok := firstNewerThan(v.Program, CurrentVersion); ok {
			return nil, fmt.Errorf("%w: %s has no version %d equivalent", ErrVersionIncompatible, op, CurrentVersion)
		}
		return v.Program, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v.Version)
	}
}

// introducedIn reports the first version an opcode is part of.
func introducedIn(op Opcode) Version {
	if op == OpPayFees {
		return V5
	}
	return V3
}

func firstNewerThan(p Program, target Version) (Opcode, bool) {
	for _, inst := range p {
		if introducedIn(inst.Opcode()) > target {
			return inst.Opcode(), true
		}
		var nested Program
		switch v := inst.(type) {
		case SetErrorHandler:
			nested = v.Program
		case SetAppendix:
			nested = v.Program
		}
		if op, ok := firstNewerThan(nested, target); ok {
			return op, true
		}
	}
	return 0, false
}
