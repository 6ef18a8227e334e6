package domain

import "time"

// Account is a customer organization. Accounts are created lazily the
// first time a requestor submits a request against a new name and are
// immutable afterwards.
type Account struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}
