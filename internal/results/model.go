package results

import (
	"time"

	"content-analyzer/internal/analysis"
)

// Record is a finished analysis kept for later download.
type Record struct {
	ID            string          `json:"id"`
	OwnerID       string          `json:"-"`
	FileName      string          `json:"fileName"`
	QuestionSetID string          `json:"questionSetId"`
	Client        string          `json:"client"`
	Result        analysis.Result `json:"result"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Summary is the list view of a record.
type Summary struct {
	ID            string    `json:"id"`
	FileName      string    `json:"fileName"`
	QuestionSetID string    `json:"questionSetId"`
	Client        string    `json:"client"`
	Answers       int       `json:"answers"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (r Record) Summary() Summary {
	return Summary{
		ID:            r.ID,
		FileName:      r.FileName,
		QuestionSetID: r.QuestionSetID,
		Client:        r.Client,
		Answers:       r.Result.AnswerCount(),
		CreatedAt:     r.CreatedAt,
	}
}
