package driven

// PasswordHasher derives the stored form of a password and checks candidate
// passwords against it.
type PasswordHasher interface {
	// Hash returns the stored form of password.
	Hash(password string) (string, error)

	// Verify reports whether password matches the stored form. A stored
	// value this hasher cannot interpret is reported as (false, err).
	Verify(stored, password string) (bool, error)
}
