package orders

import "strings"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// Pickup-oriented supplier surfaces call the handoff state "ready".
// Canonically it is shipped; the alias is accepted on input only.
const aliasReady = "ready"

var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed: {StatusPreparing: true, StatusCancelled: true},
	StatusPreparing: {StatusShipped: true},
	StatusShipped:   {StatusDelivered: true},
	StatusDelivered: {},
	StatusCancelled: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

func (s Status) Terminal() bool {
	return s.Valid() && len(validNext[s]) == 0
}

// ParseStatus normalizes client input to a canonical status.
func ParseStatus(raw string) (Status, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == aliasReady {
		v = string(StatusShipped)
	}
	s := Status(v)
	if !s.Valid() {
		return "", Validationf("unknown status %q", raw)
	}
	return s, nil
}

var displayLabels = map[Status]string{
	StatusPending:   "Pending",
	StatusConfirmed: "Confirmed",
	StatusPreparing: "Preparing",
	StatusShipped:   "Shipped / Ready for Pickup",
	StatusDelivered: "Delivered",
	StatusCancelled: "Cancelled",
}

func (s Status) Label() string {
	if l, ok := displayLabels[s]; ok {
		return l
	}
	return string(s)
}
