package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// NavigationHint tells the caller where to send the user after a delete:
// "new" when the organization has no listings left, "index" otherwise.
type NavigationHint string

const (
	NavigateNew   NavigationHint = "new"
	NavigateIndex NavigationHint = "index"
)

type CreateRequest struct {
	Title               string        `json:"title"`
	Description         string        `json:"description"`
	City                *string       `json:"city"`
	District            *string       `json:"district"`
	LocationRequirement string        `json:"location_requirement"`
	ExperienceLevel     string        `json:"experience_level"`
	EmploymentType      string        `json:"employment_type"`
	Wage                *int          `json:"wage"`
	WageInterval        *WageInterval `json:"wage_interval"`
}

type UpdateRequest = CreateRequest

// MutationResult carries the listing after a write together with the cache
// tags the write invalidates. The transport layer applies the tags once the
// transaction has committed.
type MutationResult struct {
	Listing JobListing
	Tags    []string
}

type DeleteResult struct {
	Tags       []string
	Navigation NavigationHint
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*MutationResult, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateRequest) (*MutationResult, error)
	ToggleStatus(ctx context.Context, id snowflake.ID) (*MutationResult, error)
	ToggleFeatured(ctx context.Context, id snowflake.ID) (*MutationResult, error)
	Delete(ctx context.Context, id snowflake.ID) (*DeleteResult, error)

	Get(ctx context.Context, id snowflake.ID) (*JobListing, error)
	List(ctx context.Context) ([]JobListing, error)
}
