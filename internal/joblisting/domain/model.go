// Package domain contains the job listing model and lifecycle contracts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusDelisted  Status = "delisted"
)

// NextStatus is the fixed forward cycle the status toggle walks:
// draft -> published -> delisted. Delisted is terminal; republishing takes
// an explicit reset, not another toggle, so repeated toggles always reach a
// fixed point.
func NextStatus(current Status) Status {
	switch current {
	case StatusDraft:
		return StatusPublished
	case StatusPublished:
		return StatusDelisted
	default:
		return StatusDelisted
	}
}

type LocationRequirement string

const (
	LocationInOffice LocationRequirement = "in-office"
	LocationHybrid   LocationRequirement = "hybrid"
	LocationRemote   LocationRequirement = "remote"
)

type ExperienceLevel string

const (
	ExperienceJunior ExperienceLevel = "junior"
	ExperienceMid    ExperienceLevel = "mid-level"
	ExperienceSenior ExperienceLevel = "senior"
)

type EmploymentType string

const (
	EmploymentFullTime   EmploymentType = "full-time"
	EmploymentPartTime   EmploymentType = "part-time"
	EmploymentInternship EmploymentType = "internship"
)

type WageInterval string

const (
	WageHourly WageInterval = "hourly"
	WageYearly WageInterval = "yearly"
)

// JobListing is owned exclusively by its organization and mutated only
// through the lifecycle service. PostedAt is set exactly once, on the first
// transition into published. City and District are null whenever the
// listing is remote.
type JobListing struct {
	ID    snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID snowflake.ID `gorm:"column:org_id;not null;index" json:"organization_id"`

	Title               string              `gorm:"type:text;not null" json:"title"`
	Description         string              `gorm:"type:text;not null" json:"description"`
	City                *string             `gorm:"type:text" json:"city,omitempty"`
	District            *string             `gorm:"type:text" json:"district,omitempty"`
	LocationRequirement LocationRequirement `gorm:"column:location_requirement;type:text;not null" json:"location_requirement"`
	ExperienceLevel     ExperienceLevel     `gorm:"column:experience_level;type:text;not null" json:"experience_level"`
	EmploymentType      EmploymentType      `gorm:"column:employment_type;type:text;not null" json:"employment_type"`
	Wage                *int                `gorm:"type:integer" json:"wage,omitempty"`
	WageInterval        *WageInterval       `gorm:"column:wage_interval;type:text" json:"wage_interval,omitempty"`

	Status     Status     `gorm:"type:text;not null;default:'draft';index" json:"status"`
	IsFeatured bool       `gorm:"column:is_featured;not null;default:false" json:"is_featured"`
	PostedAt   *time.Time `gorm:"column:posted_at" json:"posted_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (JobListing) TableName() string { return "job_listings" }
