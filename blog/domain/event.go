package domain

// EventKind names the notification emitted after a successful mutation.
type EventKind string

const (
	EventPostCreated       EventKind = "PostCreated"
	EventPostUpdated       EventKind = "PostUpdated"
	EventPostLikedDisliked EventKind = "PostLikedDisliked"
)

// Event is a point-in-time fact about a post.
// Actor is the post author for PostCreated/PostUpdated and the voter for PostLikedDisliked.
// IsLike is only meaningful for PostLikedDisliked.
type Event struct {
	Kind   EventKind
	PostID int
	Actor  Identity
	IsLike bool
}

// EventPublisher receives events synchronously, in mutation order.
// Implementations must not call back into the store that emitted the event.
type EventPublisher interface {
	Publish(evt Event)
}

// PublisherFunc adapts a plain function to EventPublisher.
type PublisherFunc func(evt Event)

func (f PublisherFunc) Publish(evt Event) {
	f(evt)
}
