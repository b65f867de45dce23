package questionnaire

// ResultDestination is the LeadsTo value of an option that completes the
// questionnaire
const ResultDestination = "Result"

// OptionPreview shows where an option leads without answering it
type OptionPreview struct {
	Label     string `json:"label"`
	Value     string `json:"value"`
	LeadsTier string `json:"leads_tier,omitempty"`
	LeadsTo   string `json:"leads_to"`
}

// OptionsPreview projects the options of a question. An unknown question
// yields an empty preview.
func (h *History) OptionsPreview(questionID string) []OptionPreview {
	node, ok := h.graph.Node(questionID)
	if !ok {
		return nil
	}

	out := make([]OptionPreview, 0, len(node.Options))
	for _, opt := range node.Options {
		leadsTo := opt.Next
		if opt.IsTerminal() {
			leadsTo = ResultDestination
		}
		out = append(out, OptionPreview{
			Label:     opt.Label,
			Value:     opt.Value,
			LeadsTier: opt.SetsTier,
			LeadsTo:   leadsTo,
		})
	}
	return out
}

// Step is one answered question for display
type Step struct {
	Index          int    `json:"index"`
	QuestionID     string `json:"question_id"`
	QuestionText   string `json:"question_text"`
	AnswerLabel    string `json:"answer_label"`
	AnswerValue    string `json:"answer_value"`
	Tier           string `json:"tier,omitempty"`
	NextQuestionID string `json:"next_question_id"`
}

// Path lists the answered questions in order, with the question text
// resolved from the graph when the node still exists
func (h *History) Path() []Step {
	entries := h.Entries()
	out := make([]Step, 0, len(entries))
	for i, e := range entries {
		text := e.QuestionID
		if node, ok := h.graph.Node(e.QuestionID); ok && node.Question != "" {
			text = node.Question
		}
		out = append(out, Step{
			Index:          i,
			QuestionID:     e.QuestionID,
			QuestionText:   text,
			AnswerLabel:    e.AnswerLabel,
			AnswerValue:    e.AnswerValue,
			Tier:           e.SetsTier,
			NextQuestionID: e.NextQuestionID,
		})
	}
	return out
}
