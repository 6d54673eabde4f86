package jwttoken

import "healthdir/internal/identity"

// Adapter exposes JWTService through the identity.TokenValidator interface so
// the principal middleware stays decoupled from the token format.
type Adapter struct {
	svc *JWTService
}

func NewAdapter(svc *JWTService) *Adapter {
	return &Adapter{svc: svc}
}

func (a *Adapter) ValidateToken(tokenString string) (*identity.Claims, error) {
	claims, err := a.svc.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &identity.Claims{
		UserID:    claims.UserID,
		UserName:  claims.UserName,
		SessionID: claims.SessionID,
		Roles:     claims.Roles,
	}, nil
}
