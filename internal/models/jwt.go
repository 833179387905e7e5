package models

// Operator is the authenticated dashboard user, taken from verified JWT claims
type Operator struct {
	Sub   string `json:"sub"`   // Subject (user ID from provider)
	Email string `json:"email"` // User email
	Name  string `json:"name"`  // User name
	Exp   int64  `json:"exp"`   // Expiration time
	Iss   string `json:"iss"`   // Issuer
}
