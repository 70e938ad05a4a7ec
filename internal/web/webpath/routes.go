package webpath

const (
	Health = "/health"
	Users  = "/users"
	Signin = "/signin"
	Stream = "/ws"

	Events             = "/events"
	EventByID          = Events + "/:id"
	EventsByLocation   = Events + "/location/:location"
	EventsSorted       = Events + "/sort/:criterion"
	EventsBatch        = Events + "/batch"
	EventSubscribe     = Events + "/subscribe/:id"
	EventSubscriptions = Events + "/:id/subscriptions"
	EventNotify        = Events + "/notify/:id"
)

// Protected lists path prefixes that require credentials.
func Protected() []string {
	return []string{Events, Stream}
}
