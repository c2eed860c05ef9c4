package model

// ClaimExpiry is the registered claim carrying a token's expiration time.
const ClaimExpiry = "exp"

// Claims is an arbitrary claim set embedded in a signed token.
type Claims map[string]any

// Clone returns a shallow copy of c. A nil Claims clones to an empty map.
func (c Claims) Clone() Claims {
	out := make(Claims, len(c)+1)
	for k, v := range c {
		out[k] = v
	}
	return out
}
