package topics

import (
	"context"
	"math/rand"
)

// Rotation alternates conversation material between trivia questions and
// news headlines, roughly half and half. Both sources carry their own
// fallbacks, so a pick never fails.
type Rotation struct {
	trivia    *Provider
	headlines *Headlines
}

// NewRotation creates a rotation over both built-in sources.
func NewRotation() *Rotation {
	return &Rotation{
		trivia:    NewProvider(),
		headlines: NewHeadlines(),
	}
}

// FetchTopic returns the next piece of conversation material.
func (r *Rotation) FetchTopic(ctx context.Context) Topic {
	if rand.Intn(2) == 0 {
		headline := r.headlines.FetchHeadline(ctx)
		return Topic{Text: headline.Title, Category: "News: " + headline.Source}
	}
	return r.trivia.FetchTopic(ctx)
}
