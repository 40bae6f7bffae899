package services

import "time"

// Clock supplies the current time to the ledger and the rating cache.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// SystemClock is the wall clock in UTC.
var SystemClock Clock = systemClock{}
