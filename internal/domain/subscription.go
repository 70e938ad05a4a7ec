package domain

import "time"

type Subscription struct {
	ID        int64
	EventID   int64
	UserID    int64
	CreatedAt time.Time
}

type Reminder struct {
	EventID    int64
	EventTitle string
	EventDate  time.Time
}
