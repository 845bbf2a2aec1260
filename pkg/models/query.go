package models

// Query is a visitor question as received over HTTP.
type Query struct {
	RawText string `json:"query"`
	SiteID  string `json:"site,omitempty"`
}

// SanitizedQuery is a Query text with all markup removed.
type SanitizedQuery struct {
	CleanText string
}

// ProviderCandidate is one provider+model pair in a fallback chain.
type ProviderCandidate struct {
	Provider string `json:"provider" yaml:"provider"`
	Model    string `json:"model" yaml:"model"`
}

// String renders the candidate as provider/model for logs.
func (c ProviderCandidate) String() string {
	return c.Provider + "/" + c.Model
}

// AnswerResult is the payload returned to the widget.
type AnswerResult struct {
	Answer          string `json:"answer"`
	ServedFromCache bool   `json:"servedFromCache"`
	ModelUsed       string `json:"modelUsed,omitempty"`
}
