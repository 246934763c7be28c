package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is always queried with an owning organization ID so a listing
// belonging to another organization is indistinguishable from a missing one.
type Repository interface {
	// WithTx returns a repository bound to the given transaction.
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, listing *JobListing) error
	FindByID(ctx context.Context, orgID, id snowflake.ID) (*JobListing, error)
	// FindByIDForUpdate locks the row for the duration of the enclosing
	// transaction.
	FindByIDForUpdate(ctx context.Context, orgID, id snowflake.ID) (*JobListing, error)
	Update(ctx context.Context, listing *JobListing) error
	Delete(ctx context.Context, orgID, id snowflake.ID) error
	List(ctx context.Context, orgID snowflake.ID) ([]JobListing, error)

	CountAll(ctx context.Context, orgID snowflake.ID) (int64, error)
	CountByStatus(ctx context.Context, orgID snowflake.ID, status Status) (int64, error)
	CountFeatured(ctx context.Context, orgID snowflake.ID) (int64, error)
}
