package speech

const (
	DefaultLang = "es-ES"
	DefaultRate = 0.9
)

// Utterance tells the client what to speak and how
type Utterance struct {
	Text  string  `json:"text"`
	Lang  string  `json:"lang"`
	Rate  float64 `json:"rate"`
	Voice string  `json:"voice,omitempty"`
}

// NewUtterance builds a Spanish utterance at the default rate
func NewUtterance(text string) Utterance {
	return Utterance{Text: text, Lang: DefaultLang, Rate: DefaultRate}
}

// WithVoice selects a named voice
func (u Utterance) WithVoice(voice string) Utterance {
	u.Voice = voice
	return u
}
