package game

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/example/hablo/internal/content"
)

type card struct {
	view   CardView
	pairID string
}

// matchingPlay is a memory game where Spanish cards are paired with
// their English meaning.
type matchingPlay struct {
	m       *content.Matching
	rnd     *rand.Rand
	cards   []card
	matched map[string]bool
}

func newMatchingPlay(m *content.Matching, rnd *rand.Rand) *matchingPlay {
	return &matchingPlay{m: m, rnd: rnd}
}

func (p *matchingPlay) title() string { return p.m.Title }

func (p *matchingPlay) timed() bool { return false }

func (p *matchingPlay) reset(time.Time) {
	p.cards = p.cards[:0]
	for _, pair := range p.m.Pairs {
		p.cards = append(p.cards,
			card{view: CardView{ID: "spanish-" + pair.ID, Text: pair.Spanish, Lang: "es", Pronunciation: pair.Pronunciation}, pairID: pair.ID},
			card{view: CardView{ID: "english-" + pair.ID, Text: pair.English, Lang: "en"}, pairID: pair.ID},
		)
	}
	if p.rnd != nil {
		p.rnd.Shuffle(len(p.cards), func(i, j int) {
			p.cards[i], p.cards[j] = p.cards[j], p.cards[i]
		})
	}
	p.matched = make(map[string]bool, len(p.m.Pairs))
}

func (p *matchingPlay) find(id string) (card, bool) {
	for _, c := range p.cards {
		if c.view.ID == id {
			return c, true
		}
	}
	return card{}, false
}

func (p *matchingPlay) answer(a Answer, _ time.Time) (move, error) {
	first, ok1 := p.find(a.First)
	second, ok2 := p.find(a.Second)
	if !ok1 || !ok2 || a.First == a.Second {
		return move{}, fmt.Errorf("%w: two different cards required", ErrInvalidAnswer)
	}
	if p.matched[first.pairID] || p.matched[second.pairID] {
		return move{}, fmt.Errorf("%w: card already matched", ErrInvalidAnswer)
	}

	if first.pairID != second.pairID {
		return move{
			loseLife: true,
			feedback: Feedback{Text: "Those cards don't match.", Kind: FeedbackIncorrect},
			delay:    IncorrectDelay,
		}, nil
	}

	spanish, english := first.view.Text, second.view.Text
	if first.view.Lang != "es" {
		spanish, english = english, spanish
	}
	return move{
		correct:  true,
		points:   p.m.Points,
		feedback: Feedback{Text: fmt.Sprintf("¡Correcto! %s = %s", spanish, english), Kind: FeedbackCorrect},
		delay:    CorrectDelay,
		commit:   func() { p.matched[first.pairID] = true },
	}, nil
}

func (p *matchingPlay) timeout(time.Time) (move, error) {
	return move{}, ErrNotTimed
}

func (p *matchingPlay) finished() bool {
	return len(p.matched) == len(p.m.Pairs)
}

func (p *matchingPlay) fill(st *State, _ time.Time) {
	st.Cards = make([]CardView, len(p.cards))
	for i, c := range p.cards {
		v := c.view
		v.Matched = p.matched[c.pairID]
		st.Cards[i] = v
	}
	st.Pairs = len(p.m.Pairs)
	st.Matched = len(p.matched)
}
