package model

// AnswerResult is the terminal output of one pipeline run.
// It is constructed fresh per request and never persisted by the core.
type AnswerResult struct {
	Answer     string        `json:"answer"`
	Contexts   []string      `json:"contexts"`
	Sources    []Metadata    `json:"sources"`
	Entities   []string      `json:"entities"`
	Reflection *JudgeVerdict `json:"reflection,omitempty"`
	Intent     Intent        `json:"intent"`
}
