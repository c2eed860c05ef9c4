package model

// Credential is a user credential record as held by the storage service.
// Password is the stored form (a password hash, or legacy ciphertext),
// never the plaintext the user submitted.
type Credential struct {
	ID       string
	Password string
}
