// Package questionnaire walks the classification questionnaire.
// The answer history is the only state. Tier, flags and answers are never
// stored; every read folds the active history from the start.
package questionnaire

import (
	"go.uber.org/zap"

	"research-planner/core/catalog"
	"research-planner/internal/logging"
)

// Graph resolves questionnaire nodes. *catalog.Catalog satisfies it.
type Graph interface {
	Start() string
	Node(id string) (*catalog.Node, bool)
}

// Entry is one recorded answer
type Entry struct {
	QuestionID     string   `json:"question_id"`
	AnswerValue    string   `json:"answer_value"`
	AnswerLabel    string   `json:"answer_label"`
	NextQuestionID string   `json:"next_question_id"`
	SetsTier       string   `json:"sets_tier,omitempty"`
	SetsFlags      []string `json:"sets_flags,omitempty"`
	ClearsFlags    []string `json:"clears_flags,omitempty"`
}

// State is the classification derived from the active history
type State struct {
	// QuestionID is the next question to ask
	QuestionID string            `json:"question_id,omitempty"`
	Tier       string            `json:"tier,omitempty"`
	Flags      []string          `json:"flags"`
	Answers    map[string]string `json:"answers"`
	Complete   bool              `json:"complete"`
}

// HasFlag reports whether a flag is set
func (s State) HasFlag(flag string) bool {
	for _, f := range s.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// History is an append/truncate log of answers with a cursor
type History struct {
	graph   Graph
	entries []Entry
	// cursor is the index of the last active entry, -1 before the first question
	cursor int
	logger *zap.Logger
}

// NewHistory creates an empty history over a questionnaire graph
func NewHistory(graph Graph) *History {
	return &History{
		graph:  graph,
		cursor: -1,
		logger: logging.Named("questionnaire"),
	}
}

// RecordAnswer appends an answer. Entries after the cursor belong to an
// abandoned branch and are discarded first. The question id is not checked
// against the expected next question.
func (h *History) RecordAnswer(questionID string, opt catalog.Option) State {
	if h.cursor < len(h.entries)-1 {
		h.logger.Debug("discarding abandoned branch",
			zap.Int("cursor", h.cursor),
			zap.Int("dropped", len(h.entries)-1-h.cursor))
		h.entries = h.entries[:h.cursor+1]
	}

	h.entries = append(h.entries, Entry{
		QuestionID:     questionID,
		AnswerValue:    opt.Value,
		AnswerLabel:    opt.Label,
		NextQuestionID: opt.Next,
		SetsTier:       opt.SetsTier,
		SetsFlags:      append([]string(nil), opt.SetsFlags...),
		ClearsFlags:    append([]string(nil), opt.ClearsFlags...),
	})
	h.cursor = len(h.entries) - 1

	h.logger.Debug("answer recorded",
		zap.String("question", questionID),
		zap.String("answer", opt.Value),
		zap.String("next", opt.Next))

	return h.Recalculate()
}

// Answer records the option of a node by value. It reports false, leaving
// the history untouched, when the node or option does not exist.
func (h *History) Answer(questionID, value string) (State, bool) {
	node, ok := h.graph.Node(questionID)
	if !ok {
		return h.Recalculate(), false
	}
	opt, ok := node.Option(value)
	if !ok {
		return h.Recalculate(), false
	}
	return h.RecordAnswer(questionID, opt), true
}

// GoBackTo keeps entries up to and including index and drops the rest.
// A negative index clears the whole history.
func (h *History) GoBackTo(index int) State {
	if index < 0 {
		h.Reset()
		return h.Recalculate()
	}
	if index < len(h.entries)-1 {
		h.entries = h.entries[:index+1]
	}
	h.cursor = len(h.entries) - 1

	h.logger.Debug("history truncated", zap.Int("entries", len(h.entries)))
	return h.Recalculate()
}

// GoBackOne undoes the last answer. It reports false when there is nothing
// to undo.
func (h *History) GoBackOne() (State, bool) {
	if h.cursor < 0 {
		return h.Recalculate(), false
	}
	return h.GoBackTo(h.cursor - 1), true
}

// Reset clears the history
func (h *History) Reset() {
	h.entries = nil
	h.cursor = -1
}

// Recalculate folds the active entries in order. The last tier set wins;
// flags are set then cleared entry by entry, so a flag cleared by one entry
// and set again by a later one ends up present.
func (h *History) Recalculate() State {
	return Fold(h.graph.Start(), h.Entries())
}

// Fold derives the state of an answer sequence. start is the question asked
// when the sequence is empty.
func Fold(start string, entries []Entry) State {
	state := State{
		QuestionID: start,
		Flags:      []string{},
		Answers:    make(map[string]string, len(entries)),
	}

	for _, e := range entries {
		state.Answers[e.QuestionID] = e.AnswerValue
		if e.SetsTier != "" {
			state.Tier = e.SetsTier
		}
		for _, f := range e.SetsFlags {
			if !state.HasFlag(f) {
				state.Flags = append(state.Flags, f)
			}
		}
		if len(e.ClearsFlags) > 0 {
			state.Flags = removeAll(state.Flags, e.ClearsFlags)
		}
	}

	if n := len(entries); n > 0 {
		state.QuestionID = entries[n-1].NextQuestionID
		state.Complete = state.QuestionID == catalog.NextComplete
	}
	return state
}

// Entries returns a copy of the active entries
func (h *History) Entries() []Entry {
	out := make([]Entry, h.cursor+1)
	copy(out, h.entries[:h.cursor+1])
	return out
}

// Len returns the number of active entries
func (h *History) Len() int {
	return h.cursor + 1
}

func removeAll(flags, clear []string) []string {
	out := flags[:0]
	for _, f := range flags {
		drop := false
		for _, c := range clear {
			if f == c {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, f)
		}
	}
	return out
}
