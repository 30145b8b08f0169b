package session

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yanqian/drive-value/internal/domain/user"
	apperrors "github.com/yanqian/drive-value/pkg/errors"
	"github.com/yanqian/drive-value/pkg/util"
)

// CodeCredentialDecode is returned for credentials that are not a readable JWT.
const CodeCredentialDecode = "credential_decode_error"

// ProviderGoogle tags identities created from Google credentials.
const ProviderGoogle = "google"

// ExternalClaims are the identity claims carried by a provider credential.
type ExternalClaims struct {
	Subject    string `json:"sub"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

// DecodeCredential reads the payload of a header.payload.signature token
// without verifying its signature.
func DecodeCredential(credential string) (ExternalClaims, error) {
	credential = strings.TrimSpace(credential)
	if strings.Count(credential, ".") != 2 {
		return ExternalClaims{}, apperrors.Wrap(CodeCredentialDecode, "credential is not a JWT", nil)
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(credential, claims); err != nil {
		return ExternalClaims{}, apperrors.Wrap(CodeCredentialDecode, "failed to decode credential", err)
	}
	out := ExternalClaims{
		Subject:    claimString(claims, "sub"),
		Email:      claimString(claims, "email"),
		Name:       claimString(claims, "name"),
		GivenName:  claimString(claims, "given_name"),
		FamilyName: claimString(claims, "family_name"),
		Picture:    claimString(claims, "picture"),
	}
	if out.Subject == "" {
		return ExternalClaims{}, apperrors.Wrap(CodeCredentialDecode, "credential has no subject", nil)
	}
	return out, nil
}

// Identity converts the claims into a fresh identity record.
func (c ExternalClaims) Identity() user.Identity {
	profile := user.Profile{
		FirstName: c.GivenName,
		LastName:  c.FamilyName,
		Name:      c.Name,
		Avatar:    c.Picture,
	}
	if profile.Name == "" {
		profile.Name = profile.DisplayName()
	}
	return user.Identity{
		ID:           c.Subject,
		Email:        c.Email,
		Profile:      profile,
		CreatedAt:    util.FormatTimestamp(util.NowUTC()),
		AuthProvider: ProviderGoogle,
	}.Normalize()
}

func claimString(claims jwt.MapClaims, key string) string {
	v, ok := claims[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}
