package content

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/example/hablo/pkg/models"
)

// ErrUnknownLesson is returned when a lesson id is not in the catalog
var ErrUnknownLesson = errors.New("unknown lesson")

var trailingNumber = regexp.MustCompile(`^(.*?)(\d+)$`)

// Catalog holds lessons and the game content they point to
type Catalog struct {
	lessons    []models.Lesson
	byID       map[string]int
	quizzes    map[string]*Quiz
	roleplays  map[string]*Roleplay
	matchings  map[string]*Matching
	vocabulary []VocabularySet
}

func newCatalog() *Catalog {
	return &Catalog{
		byID:      make(map[string]int),
		quizzes:   make(map[string]*Quiz),
		roleplays: make(map[string]*Roleplay),
		matchings: make(map[string]*Matching),
	}
}

func (c *Catalog) add(f file) error {
	for _, l := range f.Lessons {
		if l.ID == "" {
			return errors.New("lesson without id")
		}
		if _, dup := c.byID[l.ID]; dup {
			return fmt.Errorf("duplicate lesson %q", l.ID)
		}
		c.byID[l.ID] = len(c.lessons)
		c.lessons = append(c.lessons, l)
	}
	for i := range f.Quizzes {
		q := f.Quizzes[i]
		if err := c.claimGameID(q.ID); err != nil {
			return err
		}
		c.quizzes[q.ID] = &q
	}
	for i := range f.Roleplays {
		r := f.Roleplays[i]
		if err := c.claimGameID(r.ID); err != nil {
			return err
		}
		c.roleplays[r.ID] = &r
	}
	for i := range f.Matchings {
		m := f.Matchings[i]
		if err := c.claimGameID(m.ID); err != nil {
			return err
		}
		c.matchings[m.ID] = &m
	}
	c.vocabulary = append(c.vocabulary, f.Vocabulary...)
	return nil
}

func (c *Catalog) claimGameID(id string) error {
	if id == "" {
		return errors.New("game without id")
	}
	if id == string(KindVocabulary) {
		return fmt.Errorf("game id %q is reserved", id)
	}
	if _, ok := c.GameKind(id); ok {
		return fmt.Errorf("duplicate game %q", id)
	}
	return nil
}

// Validate checks cross references between lessons and games
func (c *Catalog) Validate() error {
	for _, l := range c.lessons {
		if l.Prerequisite != "" {
			if _, ok := c.byID[l.Prerequisite]; !ok {
				return fmt.Errorf("lesson %q: unknown prerequisite %q", l.ID, l.Prerequisite)
			}
		}
		if l.GameID == "" {
			continue
		}
		kind, ok := c.GameKind(l.GameID)
		if !ok {
			return fmt.Errorf("lesson %q: unknown game %q", l.ID, l.GameID)
		}
		if kind == KindVocabulary && l.Topic == "" {
			return fmt.Errorf("lesson %q: vocabulary game needs a topic", l.ID)
		}
	}
	for _, q := range c.quizzes {
		if err := validateQuiz(q); err != nil {
			return err
		}
	}
	for _, r := range c.roleplays {
		if err := validateRoleplay(r); err != nil {
			return err
		}
	}
	for _, m := range c.matchings {
		if len(m.Pairs) == 0 {
			return fmt.Errorf("matching %q: no pairs", m.ID)
		}
		seen := make(map[string]bool)
		for _, p := range m.Pairs {
			if p.ID == "" || seen[p.ID] {
				return fmt.Errorf("matching %q: missing or duplicate pair id %q", m.ID, p.ID)
			}
			seen[p.ID] = true
		}
	}
	return nil
}

func validateQuiz(q *Quiz) error {
	if len(q.Questions) == 0 {
		return fmt.Errorf("quiz %q: no questions", q.ID)
	}
	for i, question := range q.Questions {
		if question.FreeText() {
			if strings.TrimSpace(question.Answer) == "" {
				return fmt.Errorf("quiz %q question %d: needs options or an answer", q.ID, i)
			}
			continue
		}
		if len(question.Options) < 2 {
			return fmt.Errorf("quiz %q question %d: needs at least two options", q.ID, i)
		}
		if question.Correct < 0 || question.Correct >= len(question.Options) {
			return fmt.Errorf("quiz %q question %d: correct index %d out of range", q.ID, i, question.Correct)
		}
	}
	return nil
}

func validateRoleplay(r *Roleplay) error {
	if len(r.Steps) == 0 {
		return fmt.Errorf("roleplay %q: no steps", r.ID)
	}
	if r.Start == "" {
		r.Start = r.Steps[0].ID
	}
	ids := make(map[string]bool, len(r.Steps))
	for _, s := range r.Steps {
		if s.ID == "" || ids[s.ID] {
			return fmt.Errorf("roleplay %q: missing or duplicate step id %q", r.ID, s.ID)
		}
		ids[s.ID] = true
	}
	if !ids[r.Start] {
		return fmt.Errorf("roleplay %q: unknown start step %q", r.ID, r.Start)
	}

	terminal := false
	for _, s := range r.Steps {
		if len(s.Options) == 0 {
			terminal = true
			continue
		}
		hasCorrect := false
		for _, o := range s.Options {
			if o.Correct {
				hasCorrect = true
				if !ids[o.Next] {
					return fmt.Errorf("roleplay %q step %q: unknown next step %q", r.ID, s.ID, o.Next)
				}
			} else if o.Next != "" && !ids[o.Next] {
				return fmt.Errorf("roleplay %q step %q: unknown next step %q", r.ID, s.ID, o.Next)
			}
		}
		if !hasCorrect {
			return fmt.Errorf("roleplay %q step %q: no correct option", r.ID, s.ID)
		}
	}
	if !terminal {
		return fmt.Errorf("roleplay %q: no final step", r.ID)
	}
	if !r.reachesEnd() {
		return fmt.Errorf("roleplay %q: no final step reachable from %q", r.ID, r.Start)
	}
	return nil
}

// reachesEnd walks correct replies from Start looking for a step without options
func (r *Roleplay) reachesEnd() bool {
	seen := map[string]bool{r.Start: true}
	queue := []string{r.Start}
	for len(queue) > 0 {
		s, ok := r.Step(queue[0])
		queue = queue[1:]
		if !ok {
			continue
		}
		if len(s.Options) == 0 {
			return true
		}
		for _, o := range s.Options {
			if o.Correct && !seen[o.Next] {
				seen[o.Next] = true
				queue = append(queue, o.Next)
			}
		}
	}
	return false
}

// Lessons returns the catalog in file order
func (c *Catalog) Lessons() []models.Lesson {
	out := make([]models.Lesson, len(c.lessons))
	copy(out, c.lessons)
	return out
}

// Lesson looks up a lesson by id
func (c *Catalog) Lesson(id string) (models.Lesson, error) {
	i, ok := c.byID[id]
	if !ok {
		return models.Lesson{}, fmt.Errorf("%w: %s", ErrUnknownLesson, id)
	}
	return c.lessons[i], nil
}

// LessonsByKind filters lessons by kind
func (c *Catalog) LessonsByKind(kinds ...models.LessonKind) []models.Lesson {
	var out []models.Lesson
	for _, l := range c.lessons {
		for _, k := range kinds {
			if l.Kind == k {
				out = append(out, l)
				break
			}
		}
	}
	return out
}

// Successors returns the ids unlocked by completing levelID. Lessons
// that name levelID as prerequisite win; otherwise a trailing integer
// is incremented. Ids without one unlock nothing.
func (c *Catalog) Successors(levelID string) []string {
	var next []string
	for _, l := range c.lessons {
		if l.Prerequisite == levelID {
			next = append(next, l.ID)
		}
	}
	if len(next) > 0 {
		return next
	}
	if id, ok := NextNumbered(levelID); ok {
		return []string{id}
	}
	return nil
}

// NextNumbered increments the trailing integer of id
func NextNumbered(id string) (string, bool) {
	m := trailingNumber.FindStringSubmatch(id)
	if m == nil {
		return "", false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", false
	}
	return m[1] + strconv.Itoa(n+1), true
}

// Available reports whether a lesson is open given the unlocked set.
// Lessons without prerequisite are always open.
func (c *Catalog) Available(l models.Lesson, unlocked []string) bool {
	if l.Prerequisite == "" {
		return true
	}
	for _, id := range unlocked {
		if id == l.ID {
			return true
		}
	}
	return false
}

// GameKind reports which controller drives a game id
func (c *Catalog) GameKind(id string) (GameKind, bool) {
	switch {
	case id == string(KindVocabulary):
		return KindVocabulary, true
	case c.quizzes[id] != nil:
		return KindQuiz, true
	case c.roleplays[id] != nil:
		return KindRoleplay, true
	case c.matchings[id] != nil:
		return KindMatching, true
	}
	return "", false
}

// Quiz returns quiz content by id
func (c *Catalog) Quiz(id string) (*Quiz, bool) {
	q, ok := c.quizzes[id]
	return q, ok
}

// Roleplay returns roleplay content by id
func (c *Catalog) Roleplay(id string) (*Roleplay, bool) {
	r, ok := c.roleplays[id]
	return r, ok
}

// Matching returns matching content by id
func (c *Catalog) Matching(id string) (*Matching, bool) {
	m, ok := c.matchings[id]
	return m, ok
}

// Vocabulary returns the seed vocabulary sets
func (c *Catalog) Vocabulary() []VocabularySet {
	return c.vocabulary
}

// VocabularyGameID names the generated quiz of a topic
func VocabularyGameID(topic string) string {
	return string(KindVocabulary) + "_" + topic
}
