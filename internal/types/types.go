// README: Shared value types used across modules.
package types

// ID is an opaque user identifier as delivered by the messaging transport.
type ID string

// Tristate is a boolean slot that may still be unknown.
type Tristate uint8

const (
	Unknown Tristate = iota
	Yes
	No
)

// TristateOf converts a known boolean into a Tristate.
func TristateOf(b bool) Tristate {
	if b {
		return Yes
	}
	return No
}

// IsSet reports whether the value is known.
func (t Tristate) IsSet() bool { return t == Yes || t == No }

func (t Tristate) String() string {
	switch t {
	case Yes:
		return "true"
	case No:
		return "false"
	default:
		return ""
	}
}

// ParseTristate is the inverse of String; anything unrecognised is Unknown.
func ParseTristate(s string) Tristate {
	switch s {
	case "true", "TRUE", "True", "1", "yes", "si", "sí":
		return Yes
	case "false", "FALSE", "False", "0", "no":
		return No
	default:
		return Unknown
	}
}
