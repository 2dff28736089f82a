package service

import "time"

// Clock returns the current time. Offer expiry is decided against it.
type Clock func() time.Time

func (c Clock) orSystem() Clock {
	if c == nil {
		return time.Now
	}
	return c
}
