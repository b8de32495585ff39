package analysis

// Answer pairs a question with the model's reply. Failed marks a placeholder.
type Answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Failed   bool   `json:"failed,omitempty"`
}

type CategoryResult struct {
	Category string   `json:"category"`
	Answers  []Answer `json:"answers"`
}

// Result is the analysis of one transcript, in catalog order.
type Result struct {
	Client     string           `json:"client,omitempty"`
	Categories []CategoryResult `json:"categories"`
}

// AnswerCount returns the number of answers across categories.
func (r Result) AnswerCount() int {
	n := 0
	for _, c := range r.Categories {
		n += len(c.Answers)
	}
	return n
}
