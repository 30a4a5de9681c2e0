package domain

import dErrors "reliefpass/pkg/domain-errors"

// Kind selects which capacity pool an admission draws from. Each kind has its
// own ceiling, occupancy and slot sequence within a program.
type Kind string

const (
	KindRegistration Kind = "REGISTRATION"
	KindStall        Kind = "STALL"
)

var validKinds = map[Kind]bool{
	KindRegistration: true,
	KindStall:        true,
}

// ParseKind accepts the canonical upper-case names and the lower-case path
// forms used in URLs ("registration", "stall").
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "kind cannot be empty")
	}
	k := Kind(s)
	switch s {
	case "registration":
		k = KindRegistration
	case "stall":
		k = KindStall
	}
	if !k.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "invalid kind")
	}
	return k, nil
}

func (k Kind) IsValid() bool {
	return validKinds[k]
}

func (k Kind) String() string {
	return string(k)
}

// Kinds lists every capacity pool in a stable order.
func Kinds() []Kind {
	return []Kind{KindRegistration, KindStall}
}
