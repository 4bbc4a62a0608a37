package model

// Intent classifies what a user message is asking for.
type Intent string

const (
	IntentGreeting      Intent = "greeting"
	IntentChitchat      Intent = "chitchat"
	IntentSummary       Intent = "summary"
	IntentDocumentQuery Intent = "document_query"
)

// IsCasual reports whether the intent bypasses retrieval entirely.
func (i Intent) IsCasual() bool {
	return i == IntentGreeting || i == IntentChitchat
}

// ParseIntent maps a classifier label to an Intent, defaulting to
// document_query for anything unrecognized (fail-open).
func ParseIntent(s string) Intent {
	switch Intent(s) {
	case IntentGreeting, IntentChitchat, IntentSummary, IntentDocumentQuery:
		return Intent(s)
	default:
		return IntentDocumentQuery
	}
}
