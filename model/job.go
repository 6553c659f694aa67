package model

// LiveJob is the deployment descriptor handed to LiveFeed.Initialize. Only live
// jobs are accepted by the live feed.
type LiveJob struct {
	ID   string
	Live bool
}
