package enums

import "fmt"

// ActorType identifies who performed a state change or ledger entry.
type ActorType string

const (
	ActorCustomer ActorType = "customer"
	ActorPartner  ActorType = "partner"
	ActorAgent    ActorType = "agent"
	ActorAdmin    ActorType = "admin"
	ActorSystem   ActorType = "system"
)

var validActorTypes = []ActorType{
	ActorCustomer,
	ActorPartner,
	ActorAgent,
	ActorAdmin,
	ActorSystem,
}

// IsValid reports whether the value matches the canonical actor type enum.
func (a ActorType) IsValid() bool {
	for _, candidate := range validActorTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseActorType converts raw input into ActorType.
func ParseActorType(value string) (ActorType, error) {
	for _, candidate := range validActorTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor type %q", value)
}
