package service

import "time"

type NotifyMode string

const (
	NotifyBroadcast   NotifyMode = "broadcast"
	NotifySubscribers NotifyMode = "subscribers"
)

const (
	DefaultStorageTimeout = 5 * time.Second
	DefaultMessage        = "Event updated or canceled"
)

type Config struct {
	// StorageTimeout bounds every storage call.
	StorageTimeout time.Duration
	NotifyMode     NotifyMode
	DefaultMessage string
}

func (c Config) withDefaults() Config {
	if c.StorageTimeout <= 0 {
		c.StorageTimeout = DefaultStorageTimeout
	}
	if c.NotifyMode == "" {
		c.NotifyMode = NotifySubscribers
	}
	if c.DefaultMessage == "" {
		c.DefaultMessage = DefaultMessage
	}
	return c
}
