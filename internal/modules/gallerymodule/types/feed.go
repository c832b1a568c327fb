package types

// FeedStatus is the per-fetch status signal published to feed subscribers
type FeedStatus string

const (
	FeedStatusLoading FeedStatus = "loading"
	FeedStatusSuccess FeedStatus = "success"
	FeedStatusError   FeedStatus = "error"
	FeedStatusEmpty   FeedStatus = "empty"
)

// FeedSnapshot is the state of a feed after a fetch changed it.
// Records holds every materialized page in order.
type FeedSnapshot struct {
	Status  FeedStatus    `json:"status"`
	Records []MediaRecord `json:"records"`
	Pages   int           `json:"pages"`
	NextKey *int          `json:"next_key,omitempty"`
	PrevKey *int          `json:"prev_key,omitempty"`
	Err     error         `json:"-"`
}

// Exhausted reports whether the feed has no further pages to load
func (s FeedSnapshot) Exhausted() bool {
	return s.NextKey == nil
}
