package types

// Status is a type for the lifecycle status of a resource row in the database.
// This is distinct from the domain statuses (checkout, subscription, task, job)
// which track business state.
type Status string

const (
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
	StatusDeleted   Status = "deleted"
)
