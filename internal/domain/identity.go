package domain

import "time"

// Identity is the minimal authenticated principal resolved by a successful
// login or token verification. It lives only for the call that produced it.
type Identity struct {
	Subject string
}

// Credential is a stored username/secret pair. Secret holds a bcrypt hash,
// never the plaintext.
type Credential struct {
	Username  string
	Secret    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
