package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Question is one prompt put to the model. Instruction is optional guidance
// appended to the prompt.
type Question struct {
	Text        string `json:"text"`
	Instruction string `json:"instruction"`
}

// UnmarshalJSON accepts both the object form and a legacy bare string.
func (q *Question) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*q = Question{Text: strings.TrimSpace(s)}
		return nil
	}
	var raw struct {
		Text        string `json:"text"`
		Instruction string `json:"instruction"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("question: %w", err)
	}
	*q = Question{Text: strings.TrimSpace(raw.Text), Instruction: strings.TrimSpace(raw.Instruction)}
	return nil
}

type Category struct {
	Name      string     `json:"category"`
	Questions []Question `json:"questions"`
}

// Catalog is the ordered list of categories driving an analysis. Order is
// preserved end to end.
type Catalog []Category

type wireCatalog struct {
	ProjectQuestions []Category `json:"project_questions"`
}

// MarshalJSON writes the {"project_questions": [...]} envelope.
func (c Catalog) MarshalJSON() ([]byte, error) {
	cats := []Category(c)
	if cats == nil {
		cats = []Category{}
	}
	return json.Marshal(wireCatalog{ProjectQuestions: cats})
}

// UnmarshalJSON reads either the envelope or a bare category array.
func (c *Catalog) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var cats []Category
		if err := json.Unmarshal(data, &cats); err != nil {
			return err
		}
		*c = cats
		return nil
	}
	var w wireCatalog
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*c = w.ProjectQuestions
	return nil
}

// Validate requires at least one category, each named and holding at least
// one non-empty question.
func (c Catalog) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("%w: at least one category is required", ErrInvalidCatalog)
	}
	for i, cat := range c {
		if strings.TrimSpace(cat.Name) == "" {
			return fmt.Errorf("%w: category %d has no name", ErrInvalidCatalog, i+1)
		}
		if len(cat.Questions) == 0 {
			return fmt.Errorf("%w: category %q has no questions", ErrInvalidCatalog, cat.Name)
		}
		for j, q := range cat.Questions {
			if strings.TrimSpace(q.Text) == "" {
				return fmt.Errorf("%w: question %d in %q is empty", ErrInvalidCatalog, j+1, cat.Name)
			}
		}
	}
	return nil
}

// QuestionCount returns the total number of questions across categories.
func (c Catalog) QuestionCount() int {
	n := 0
	for _, cat := range c {
		n += len(cat.Questions)
	}
	return n
}

// Clone returns a deep copy.
func (c Catalog) Clone() Catalog {
	if c == nil {
		return nil
	}
	out := make(Catalog, len(c))
	for i, cat := range c {
		out[i] = Category{Name: cat.Name, Questions: append([]Question(nil), cat.Questions...)}
	}
	return out
}

// QuestionSet is a named, persisted catalog.
type QuestionSet struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"-"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Questions   Catalog   `json:"questions"`
	IsDefault   bool      `json:"isDefault"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
