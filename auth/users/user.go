package users

import (
	"time"
)

type User struct {
	ID           int64
	Name         string
	RegisteredAt time.Time
}

type Secret struct {
	PasswordHash []byte
	Salt         []byte
}
