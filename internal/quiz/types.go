package quiz

// question type discriminators, matching the stored quiz JSON
const (
	TypeMultipleChoice = "multiple_choice"
	TypeTrueFalse      = "true_false"
)

// Question is either a multiple-choice question (Options + AnswerIndex set)
// or a true/false question (Answer set). The correct option of a
// multiple-choice question is always at index 0; shuffling for presentation
// is the consumer's job.
type Question struct {
	Type        string   `json:"type"`
	Question    string   `json:"question"`
	Options     []string `json:"options,omitempty"`
	AnswerIndex *int     `json:"answer_index,omitempty"`
	Answer      *bool    `json:"answer,omitempty"`
	Explanation string   `json:"explanation"`
}

// Quiz is an ordered set of generated questions. It is never empty: generation
// failures degrade to a single fallback question.
type Quiz struct {
	Questions []Question `json:"questions"`
}

func newMultipleChoice(question string, options []string, explanation string) Question {
	idx := 0
	return Question{
		Type:        TypeMultipleChoice,
		Question:    question,
		Options:     options,
		AnswerIndex: &idx,
		Explanation: explanation,
	}
}

func newTrueFalse(question string, answer bool, explanation string) Question {
	a := answer
	return Question{
		Type:        TypeTrueFalse,
		Question:    question,
		Answer:      &a,
		Explanation: explanation,
	}
}
