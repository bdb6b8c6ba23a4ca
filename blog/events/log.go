package events

import (
	"github.com/dfryer1193/postboard/blog/domain"
	"github.com/rs/zerolog"
)

var _ domain.EventPublisher = (*LogPublisher)(nil)

// LogPublisher writes every event to a zerolog logger at info level.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{
		logger: logger.With().Str("component", "events").Logger(),
	}
}

func (p *LogPublisher) Publish(evt domain.Event) {
	e := p.logger.Info().
		Str("kind", string(evt.Kind)).
		Int("postID", evt.PostID).
		Str("actor", string(evt.Actor))
	if evt.Kind == domain.EventPostLikedDisliked {
		e = e.Bool("isLike", evt.IsLike)
	}
	e.Msg("Post event")
}
