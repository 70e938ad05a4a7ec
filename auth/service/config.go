package service

import "time"

type Config struct {
	TokenSecret    string        `toml:"token_secret"`
	TokenTTL       time.Duration `toml:"token_ttl"`
	PasswordPepper string        `toml:"password_pepper"`
	// RootPassword enables the root account when set.
	RootPassword string `toml:"root_password"`
}
