package domain

import "time"

// Account is a connected mailbox, identified by its address.
type Account struct {
	Email         string  `json:"email" bson:"email"`
	Owner         string  `json:"owner,omitempty" bson:"owner,omitempty"`
	LastEmailTs   *string `json:"last_email_ts" bson:"last_email_ts"`
	Authenticated bool    `json:"authenticated" bson:"authenticated"`
}

// PendingAuth links an in-flight authorization attempt to the account it
// targets. A state value not present in the store is invalid for exchange.
type PendingAuth struct {
	State     string    `json:"state" bson:"state"`
	Email     string    `json:"email" bson:"email"`
	Owner     string    `json:"owner,omitempty" bson:"owner,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// AuthRequest is the result of starting an OAuth handshake.
type AuthRequest struct {
	AuthURL string `json:"auth_url"`
	State   string `json:"state"`
}

// AuthGrant identifies the account (and owner, if tracked) a completed
// handshake authorized.
type AuthGrant struct {
	Email string `json:"email"`
	Owner string `json:"owner,omitempty"`
}
