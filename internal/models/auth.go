package models

import "github.com/golang-jwt/jwt/v5"

// ServiceClaims identifies the upstream service calling the API.
type ServiceClaims struct {
	Service string   `json:"service"`
	Scopes  []string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}
