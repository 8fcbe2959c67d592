package services

import (
	"time"

	"lyceum/internal/events"
	"lyceum/internal/models"
	"lyceum/internal/store"
	"lyceum/internal/utils"
)

// Deps bundles what the services need. Events and Now default to a logging publisher and
// time.Now; Ranking and Listings may be nil.
type Deps struct {
	Comments store.Comments
	Votes    store.Votes
	Users    store.Users
	Posts    store.Posts
	Events   events.Publisher
	Ranking  RankScheduler
	Now      func() time.Time

	// Listings caches post listings; any write that changes a listing purges it.
	Listings *utils.Cache[[]models.Post]
}

func (d Deps) withDefaults() Deps {
	if d.Events == nil {
		d.Events = events.LogPublisher{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

func (d Deps) invalidateListings() {
	if d.Listings != nil {
		d.Listings.Purge()
	}
}

func (d Deps) schedule(postID string) {
	if d.Ranking != nil && postID != "" {
		d.Ranking.ScheduleUpdate(postID)
	}
}
