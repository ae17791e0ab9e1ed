package content

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/example/hablo/pkg/models"
	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var embedded embed.FS

// GameKind selects which session controller drives a game
type GameKind string

const (
	KindQuiz       GameKind = "quiz"
	KindRoleplay   GameKind = "roleplay"
	KindMatching   GameKind = "matching"
	KindVocabulary GameKind = "vocabulary"
)

// Question is one quiz prompt. With options it is multiple choice,
// without them Answer is typed or spoken back.
type Question struct {
	Prompt        string `yaml:"prompt" json:"prompt"`
	Spanish       string `yaml:"spanish" json:"spanish"`
	English       string `yaml:"english" json:"english,omitempty"`
	Pronunciation string `yaml:"pronunciation" json:"pronunciation,omitempty"`
	// Passage is a dialogue or clip read aloud before the question
	Passage string   `yaml:"passage" json:"passage,omitempty"`
	Options []string `yaml:"options" json:"options"`
	Correct int      `yaml:"correct" json:"-"`
	Answer  string   `yaml:"answer" json:"-"`
}

// FreeText reports whether the question takes a typed or spoken answer
func (q Question) FreeText() bool { return len(q.Options) == 0 }

// Solution is the text of the expected answer
func (q Question) Solution() string {
	if q.FreeText() {
		return q.Answer
	}
	if q.Correct < 0 || q.Correct >= len(q.Options) {
		return ""
	}
	return q.Options[q.Correct]
}

// Quiz is a linear, optionally timed sequence of questions
type Quiz struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
	// Seconds allowed per question, zero disables the timer
	QuestionTime int        `yaml:"question_time"`
	BasePoints   int        `yaml:"base_points"`
	TimeBonus    int        `yaml:"time_bonus"`
	Shuffle      bool       `yaml:"shuffle"`
	Questions    []Question `yaml:"questions"`
}

// RoleplayOption is one reply the learner can give
type RoleplayOption struct {
	Text    string `yaml:"text" json:"text"`
	Speech  string `yaml:"speech" json:"-"`
	Correct bool   `yaml:"correct" json:"-"`
	Next    string `yaml:"next" json:"-"`
	Reward  int    `yaml:"reward" json:"-"`
}

// SpeechTarget is the phrase matched against a transcript
func (o RoleplayOption) SpeechTarget() string {
	if o.Speech != "" {
		return o.Speech
	}
	return o.Text
}

// RoleplayStep is one line of the NPC and the replies it accepts.
// A step with no options ends the conversation.
type RoleplayStep struct {
	ID      string           `yaml:"id" json:"id"`
	NPC     string           `yaml:"npc" json:"npc"`
	Hint    string           `yaml:"hint" json:"hint,omitempty"`
	Options []RoleplayOption `yaml:"options" json:"options"`
}

// Roleplay is a branching dialogue graph
type Roleplay struct {
	ID         string         `yaml:"id"`
	Title      string         `yaml:"title"`
	Scene      string         `yaml:"scene"`
	BasePoints int            `yaml:"base_points"`
	Start      string         `yaml:"start"`
	Steps      []RoleplayStep `yaml:"steps"`
}

// Step looks up a step by id
func (r *Roleplay) Step(id string) (*RoleplayStep, bool) {
	for i := range r.Steps {
		if r.Steps[i].ID == id {
			return &r.Steps[i], true
		}
	}
	return nil, false
}

// Pair is a Spanish/English card pair
type Pair struct {
	ID            string `yaml:"id" json:"id"`
	Spanish       string `yaml:"spanish" json:"spanish"`
	English       string `yaml:"english" json:"english"`
	Pronunciation string `yaml:"pronunciation" json:"pronunciation,omitempty"`
}

// Matching is a memory-style pair matching game
type Matching struct {
	ID     string `yaml:"id"`
	Title  string `yaml:"title"`
	Points int    `yaml:"points"`
	Pairs  []Pair `yaml:"pairs"`
}

// VocabularyWord is seed content for the words table
type VocabularyWord struct {
	Spanish       string `yaml:"spanish"`
	English       string `yaml:"english"`
	Pronunciation string `yaml:"pronunciation"`
	Example       string `yaml:"example"`
	Difficulty    int    `yaml:"difficulty"`
}

// VocabularySet is the seed content for one topic
type VocabularySet struct {
	Topic string           `yaml:"topic"`
	Words []VocabularyWord `yaml:"words"`
}

type file struct {
	Lessons    []models.Lesson `yaml:"lessons"`
	Quizzes    []Quiz          `yaml:"quizzes"`
	Roleplays  []Roleplay      `yaml:"roleplays"`
	Matchings  []Matching      `yaml:"matchings"`
	Vocabulary []VocabularySet `yaml:"vocabulary"`
}

// Load parses the embedded content
func Load() (*Catalog, error) {
	return LoadFS(embedded, "data")
}

// LoadFS parses every .yaml file under dir and validates the result
func LoadFS(fsys fs.FS, dir string) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read content dir: %w", err)
	}

	c := newCatalog()
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		b, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		var f file
		if err := yaml.Unmarshal(b, &f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", entry.Name(), err)
		}
		if err := c.add(f); err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
