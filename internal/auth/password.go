package auth

import "golang.org/x/crypto/bcrypt"

// dummyHash is compared against when a username is unknown so that lookup
// misses cost the same as secret mismatches. bcrypt comparison is already
// constant-time with respect to the secret itself.
var dummyHash = []byte("$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW")

// HashSecret hashes a plaintext secret with the configured cost.
func HashSecret(secret string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CompareSecret verifies a plaintext secret against its stored hash.
func CompareSecret(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// CompareDummy burns a bcrypt comparison against a fixed hash. Called on
// unknown usernames to keep their timing indistinguishable from wrong
// secrets.
func CompareDummy(plain string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plain))
}
