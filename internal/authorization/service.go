// Package authorization evaluates whether a principal holds a capability
// within an organization. It is a pure gate: it never mutates domain state.
package authorization

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

const ObjectJobListing = "job_listing"

// Capability names for job listings. The set is closed; lifecycle
// operations reference these and nothing else.
const (
	ActionJobListingCreate       = "job_listing.create"
	ActionJobListingUpdate       = "job_listing.update"
	ActionJobListingChangeStatus = "job_listing.change_status"
	ActionJobListingDelete       = "job_listing.delete"
)

var (
	// ErrUnauthenticated means no acting principal or active organization
	// could be resolved. Distinct from ErrForbidden so callers can tell
	// "sign in" apart from "ask your admin".
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden means the principal is known but lacks the capability.
	ErrForbidden = errors.New("forbidden")

	ErrInvalidActor        = errors.New("invalid_actor")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidAction       = errors.New("invalid_action")
)

// Service answers capability checks for a (user, organization) pair.
type Service interface {
	Can(ctx context.Context, userID string, orgID snowflake.ID, object string, action string) error
}
