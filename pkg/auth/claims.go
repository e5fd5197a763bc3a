package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rahulbagri/phonelot-backend/pkg/enums"
)

// AccessTokenClaims is the verified identity carried by API requests.
// PartnerID is set for partner and agent tokens; agents additionally carry
// their own AgentID as the subject.
type AccessTokenClaims struct {
	SubjectID uuid.UUID       `json:"sub_id"`
	Role      enums.ActorType `json:"role"`
	PartnerID *uuid.UUID      `json:"partner_id,omitempty"`
	jwt.RegisteredClaims
}

// AccessTokenPayload is the input used to mint a token.
type AccessTokenPayload struct {
	SubjectID uuid.UUID
	Role      enums.ActorType
	PartnerID *uuid.UUID
	JTI       string
}
