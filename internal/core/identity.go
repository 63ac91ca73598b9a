package core

const (
	TokenAdmin TokenType = "admin"
	TokenUser  TokenType = "user"
)

type (
	TokenType string

	// Owner is the caller identity resolved from an access token.
	Owner struct {
		OwnerID     string    `json:"owner_id"`
		AccessToken string    `json:"-"`
		Scope       []string  `json:"scope"`
		TokenType   TokenType `json:"token_type"`
	}
)

func (o Owner) IsAdmin() bool { return o.TokenType == TokenAdmin }

// CanRead reports whether group is within the caller scope.
func (o Owner) CanRead(group string) bool {
	for _, g := range o.Scope {
		if g == group {
			return true
		}
	}
	return false
}

// CanAdminister requires both scope and an admin token.
func (o Owner) CanAdminister(group string) bool {
	return o.IsAdmin() && o.CanRead(group)
}
