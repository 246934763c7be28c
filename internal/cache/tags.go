package cache

// Kind enumerates the entity kinds that participate in tag-addressed caching.
// Tags are opaque strings everywhere else; only this package builds them.
type Kind string

const (
	KindUsers                    Kind = "users"
	KindOrganizations            Kind = "organizations"
	KindJobListings              Kind = "jobListings"
	KindJobListingApplications   Kind = "jobListingApplications"
	KindUserNotificationSettings Kind = "userNotificationSettings"
	KindUserResumes              Kind = "userResumes"
	KindOrganizationUserSettings Kind = "organizationUserSettings"
)

// GlobalTag addresses every cached read over a kind. It is invalidated when
// any row of that kind changes in a way that affects listing or aggregate
// queries.
func GlobalTag(kind Kind) string {
	return "global:" + string(kind)
}

// IDTag addresses cached reads scoped to one entity of a kind. The scope id
// may be the entity's own id or an owning entity's id for aggregate reads
// (e.g. an organization id for per-org job listing counts).
func IDTag(kind Kind, id string) string {
	return id + "-" + string(kind)
}
