// Package retrypolicy decides whether a failed fulfillment attempt is
// retried and after what delay. It is pure: no clock, no I/O.
package retrypolicy

import "time"

// BaseDelay is the first retry delay; each subsequent attempt doubles it.
const BaseDelay = 60 * time.Second

// MaxRetries is the number of scheduled retries after which an intent is
// failed permanently.
const MaxRetries = 5

// Decision tells the caller whether to retry a failed attempt and when.
type Decision struct {
	Retry bool
	Delay time.Duration
}

// Decide returns the decision for an intent that has already been retried
// retryCount times. The delay sequence is 60s, 120s, 240s, 480s, 960s;
// past that the intent is given up.
func Decide(retryCount int) Decision {
	if retryCount < 0 || retryCount >= MaxRetries {
		return Decision{}
	}
	return Decision{Retry: true, Delay: BaseDelay << uint(retryCount)}
}
