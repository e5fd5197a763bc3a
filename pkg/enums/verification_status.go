package enums

import "fmt"

// VerificationStatus tracks partner onboarding review state.
type VerificationStatus string

const (
	VerificationPending             VerificationStatus = "pending"
	VerificationUnderReview         VerificationStatus = "under_review"
	VerificationClarificationNeeded VerificationStatus = "clarification_needed"
	VerificationApproved            VerificationStatus = "approved"
	VerificationRejected            VerificationStatus = "rejected"
	VerificationSuspended           VerificationStatus = "suspended"
)

var validVerificationStatuses = []VerificationStatus{
	VerificationPending,
	VerificationUnderReview,
	VerificationClarificationNeeded,
	VerificationApproved,
	VerificationRejected,
	VerificationSuspended,
}

// IsValid reports whether the value matches the canonical verification status enum.
func (v VerificationStatus) IsValid() bool {
	for _, candidate := range validVerificationStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVerificationStatus converts raw input into VerificationStatus.
func ParseVerificationStatus(value string) (VerificationStatus, error) {
	for _, candidate := range validVerificationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid verification status %q", value)
}
