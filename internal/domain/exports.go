package domain

import (
	interfaces "enclave/internal/domain/interfaces"
	types "enclave/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	FieldName      = types.FieldName
	Username       = types.Username
	UserID         = types.UserID
	Answers        = types.Answers
	AccountTokens  = types.AccountTokens
	AccountProfile = types.AccountProfile
	City           = types.City
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	IdentityGateway = interfaces.IdentityGateway
	TokenStore      = interfaces.TokenStore
	AccountStore    = interfaces.AccountStore
)
