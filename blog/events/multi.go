package events

import "github.com/dfryer1193/postboard/blog/domain"

// Multi publishes each event to every non-nil publisher, in order.
type Multi []domain.EventPublisher

func (m Multi) Publish(evt domain.Event) {
	for _, p := range m {
		if p != nil {
			p.Publish(evt)
		}
	}
}
