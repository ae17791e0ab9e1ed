package game

import (
	"fmt"
	"time"

	"github.com/example/hablo/internal/content"
	"github.com/example/hablo/internal/speech"
)

// roleplayPlay walks a branching dialogue. Wrong replies cost a life and
// keep the learner on the same step.
type roleplayPlay struct {
	rp      *content.Roleplay
	current string
}

func newRoleplayPlay(rp *content.Roleplay) *roleplayPlay {
	return &roleplayPlay{rp: rp}
}

func (p *roleplayPlay) title() string { return p.rp.Title }

func (p *roleplayPlay) timed() bool { return false }

func (p *roleplayPlay) reset(time.Time) {
	p.current = p.rp.Start
}

// step returns the current step, falling back to the first one for unknown ids
func (p *roleplayPlay) step() *content.RoleplayStep {
	if s, ok := p.rp.Step(p.current); ok {
		return s
	}
	return &p.rp.Steps[0]
}

func (p *roleplayPlay) answer(a Answer, now time.Time) (move, error) {
	s := p.step()
	if len(s.Options) == 0 {
		return move{}, ErrSessionOver
	}

	var mv move
	idx := -1
	switch {
	case a.Choice != nil:
		if *a.Choice < 0 || *a.Choice >= len(s.Options) {
			return move{}, fmt.Errorf("%w: choice out of range", ErrInvalidAnswer)
		}
		idx = *a.Choice
	case a.Transcript != "":
		targets := make([]string, len(s.Options))
		for i, o := range s.Options {
			targets[i] = o.SpeechTarget()
		}
		m := speech.BestMatch(a.Transcript, targets)
		mv.match = &m
		if !m.Accepted {
			mv.retry = true
			mv.feedback = Feedback{Text: fmt.Sprintf("I heard %q. Please try again.", a.Transcript), Kind: FeedbackRetry}
			return mv, nil
		}
		idx = m.Index
	default:
		return move{}, fmt.Errorf("%w: choice or transcript required", ErrInvalidAnswer)
	}

	opt := s.Options[idx]
	if !opt.Correct {
		mv.loseLife = true
		mv.feedback = Feedback{Text: "Not quite. Try another reply.", Kind: FeedbackIncorrect}
		mv.delay = IncorrectDelay
		return mv, nil
	}

	mv.correct = true
	mv.points = p.rp.BasePoints + opt.Reward
	mv.feedback = Feedback{Text: fmt.Sprintf("¡Muy bien! +%d points", mv.points), Kind: FeedbackCorrect}
	mv.delay = CorrectDelay
	mv.commit = func() {
		p.current = opt.Next
		if _, ok := p.rp.Step(p.current); !ok {
			p.current = p.rp.Steps[0].ID
		}
	}
	return mv, nil
}

func (p *roleplayPlay) timeout(time.Time) (move, error) {
	return move{}, ErrNotTimed
}

func (p *roleplayPlay) finished() bool {
	return len(p.step().Options) == 0
}

func (p *roleplayPlay) fill(st *State, _ time.Time) {
	s := p.step()
	options := make([]string, len(s.Options))
	for i, o := range s.Options {
		options[i] = o.Text
	}
	u := speech.NewUtterance(s.NPC)
	st.Step = &StepView{ID: s.ID, NPC: s.NPC, Hint: s.Hint, Options: options, Utterance: &u}
}
