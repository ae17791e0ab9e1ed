package game

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/example/hablo/internal/content"
	"github.com/example/hablo/internal/speech"
)

// quizPlay walks a linear list of questions, optionally with a countdown
// per question.
type quizPlay struct {
	quiz      *content.Quiz
	rnd       *rand.Rand
	questions []content.Question
	index     int
	deadline  time.Time
}

func newQuizPlay(q *content.Quiz, rnd *rand.Rand) *quizPlay {
	return &quizPlay{quiz: q, rnd: rnd}
}

func (p *quizPlay) title() string { return p.quiz.Title }

func (p *quizPlay) questionTime() time.Duration {
	return time.Duration(p.quiz.QuestionTime) * time.Second
}

func (p *quizPlay) timed() bool { return p.quiz.QuestionTime > 0 }

func (p *quizPlay) reset(now time.Time) {
	p.questions = append([]content.Question(nil), p.quiz.Questions...)
	if p.quiz.Shuffle && p.rnd != nil {
		p.rnd.Shuffle(len(p.questions), func(i, j int) {
			p.questions[i], p.questions[j] = p.questions[j], p.questions[i]
		})
	}
	p.index = 0
	p.deadline = now.Add(p.questionTime())
}

func (p *quizPlay) remaining(now time.Time) time.Duration {
	if !p.timed() {
		return 0
	}
	left := p.deadline.Sub(now)
	if left < 0 {
		return 0
	}
	if left > p.questionTime() {
		return p.questionTime()
	}
	return left
}

func (p *quizPlay) answer(a Answer, now time.Time) (move, error) {
	if p.finished() {
		return move{}, ErrSessionOver
	}
	q := p.questions[p.index]
	if q.FreeText() {
		return p.answerText(q, a, now)
	}
	if a.Choice == nil || *a.Choice < 0 || *a.Choice >= len(q.Options) {
		return move{}, fmt.Errorf("%w: choice out of range", ErrInvalidAnswer)
	}
	if p.timed() && !now.Before(p.deadline) {
		return p.timeout(now)
	}
	return p.grade(q, *a.Choice == q.Correct, now), nil
}

// answerText grades a typed or spoken answer. Typed text must equal the
// answer once normalized; speech below the accept threshold asks again.
func (p *quizPlay) answerText(q content.Question, a Answer, now time.Time) (move, error) {
	text := strings.TrimSpace(a.Text)
	if text == "" && a.Transcript == "" {
		return move{}, fmt.Errorf("%w: text or transcript required", ErrInvalidAnswer)
	}
	if p.timed() && !now.Before(p.deadline) {
		return p.timeout(now)
	}
	if text != "" {
		return p.grade(q, speech.Normalize(text) == speech.Normalize(q.Answer), now), nil
	}

	m := speech.BestMatch(a.Transcript, []string{q.Answer})
	if !m.Accepted {
		return move{
			retry:    true,
			match:    &m,
			feedback: Feedback{Text: fmt.Sprintf("I heard %q. Please try again.", a.Transcript), Kind: FeedbackRetry},
		}, nil
	}
	mv := p.grade(q, true, now)
	mv.match = &m
	return mv, nil
}

func (p *quizPlay) grade(q content.Question, correct bool, now time.Time) move {
	var mv move
	if correct {
		mv.correct = true
		mv.points = p.quiz.BasePoints + p.timeBonus(now)
		mv.feedback = Feedback{Text: fmt.Sprintf("¡Excelente! +%d points", mv.points), Kind: FeedbackCorrect}
		mv.delay = CorrectDelay
	} else {
		mv.loseLife = true
		mv.feedback = Feedback{Text: "Incorrect. The answer was " + q.Solution(), Kind: FeedbackIncorrect}
		mv.delay = IncorrectDelay
	}
	mv.commit = func() { p.advance(now, mv.delay) }
	return mv
}

// timeBonus is floor(remaining/questionTime * TimeBonus)
func (p *quizPlay) timeBonus(now time.Time) int {
	if !p.timed() || p.quiz.TimeBonus <= 0 {
		return 0
	}
	ratio := p.remaining(now).Seconds() / p.questionTime().Seconds()
	return int(math.Floor(ratio * float64(p.quiz.TimeBonus)))
}

func (p *quizPlay) timeout(now time.Time) (move, error) {
	if !p.timed() {
		return move{}, ErrNotTimed
	}
	if p.finished() {
		return move{}, ErrSessionOver
	}
	q := p.questions[p.index]
	mv := move{
		loseLife: true,
		feedback: Feedback{Text: "Time's up! The answer was " + q.Solution(), Kind: FeedbackIncorrect},
		delay:    IncorrectDelay,
	}
	mv.commit = func() { p.advance(now, mv.delay) }
	return mv, nil
}

// advance moves to the next question whose clock starts after the feedback delay
func (p *quizPlay) advance(now time.Time, delay time.Duration) {
	p.index++
	p.deadline = now.Add(delay + p.questionTime())
}

func (p *quizPlay) finished() bool {
	return p.index >= len(p.questions)
}

func (p *quizPlay) fill(st *State, now time.Time) {
	if p.finished() {
		return
	}
	q := p.questions[p.index]
	view := &QuestionView{
		Index:         p.index,
		Total:         len(p.questions),
		Prompt:        q.Prompt,
		Spanish:       q.Spanish,
		English:       q.English,
		Pronunciation: q.Pronunciation,
		Passage:       q.Passage,
		Options:       q.Options,
		FreeText:      q.FreeText(),
		RemainingMS:   p.remaining(now).Milliseconds(),
	}
	switch {
	case q.Passage != "":
		u := speech.NewUtterance(q.Passage)
		view.Utterance = &u
	case q.Spanish != "":
		u := speech.NewUtterance(q.Spanish)
		view.Utterance = &u
	}
	st.Question = view
}
