package forum

import "encoding/json"

// listing is the envelope reddit wraps around every result set.
type listing struct {
	Kind string      `json:"kind"`
	Data listingData `json:"data"`
}

type listingData struct {
	Children []thing `json:"children"`
	After    string  `json:"after"`
}

// thing is one entry in a listing: t3 = post, t1 = comment.
type thing struct {
	Kind string    `json:"kind"`
	Data thingData `json:"data"`
}

type thingData struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	SelfText   string  `json:"selftext"`
	Body       string  `json:"body"`
	CreatedUTC float64 `json:"created_utc"`

	// Replies is a nested listing for comments, or the empty string when
	// a comment has none. Decoded lazily because of the mixed type.
	Replies json.RawMessage `json:"replies"`
}
