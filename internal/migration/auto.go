package migration

import (
	"gorm.io/gorm"

	"github.com/hireboard/hireboard/internal/eventbus"
	joblistingdomain "github.com/hireboard/hireboard/internal/joblisting/domain"
	orgdomain "github.com/hireboard/hireboard/internal/organization/domain"
	userdomain "github.com/hireboard/hireboard/internal/user/domain"
)

// AutoMigrate creates the schema from the gorm models. Test suites and
// sqlite deployments use this instead of the SQL migrations.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&userdomain.User{},
		&orgdomain.Organization{},
		&orgdomain.OrganizationMember{},
		&joblistingdomain.JobListing{},
		&eventbus.Event{},
	)
}
