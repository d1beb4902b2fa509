package models

import "github.com/google/uuid"

// newID returns a fresh primary key. Rows keep UUID string ids so they line
// up with the hosted Postgres schema.
func newID() string {
	return uuid.NewString()
}
