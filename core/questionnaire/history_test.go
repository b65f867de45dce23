package questionnaire

import (
	"reflect"
	"testing"

	"research-planner/core/catalog"
	"research-planner/core/catalog/catalogtest"
)

func mustAnswer(t *testing.T, h *History, question, value string) State {
	t.Helper()
	state, ok := h.Answer(question, value)
	if !ok {
		t.Fatalf("answer %s=%s not found", question, value)
	}
	return state
}

func TestEmptyHistoryAsksRoot(t *testing.T) {
	h := NewHistory(catalogtest.New())
	state := h.Recalculate()
	if state.QuestionID != "human-subjects" {
		t.Errorf("expected root question, got %q", state.QuestionID)
	}
	if state.Tier != "" || len(state.Flags) != 0 || len(state.Answers) != 0 || state.Complete {
		t.Errorf("expected empty state, got %+v", state)
	}
}

func TestWalkToCompletion(t *testing.T) {
	h := NewHistory(catalogtest.New())

	tests := []struct {
		question  string
		answer    string
		wantNext  string
		wantTier  string
		wantFlags []string
	}{
		{"human-subjects", "yes", "identifiable", "", []string{"human_subjects"}},
		{"identifiable", "no", "proprietary", "internal", []string{"irb"}},
		{"proprietary", "yes", catalog.NextComplete, "internal", []string{"irb", "dua"}},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			state := mustAnswer(t, h, tt.question, tt.answer)
			if state.QuestionID != tt.wantNext {
				t.Errorf("expected next %q, got %q", tt.wantNext, state.QuestionID)
			}
			if state.Tier != tt.wantTier {
				t.Errorf("expected tier %q, got %q", tt.wantTier, state.Tier)
			}
			if !reflect.DeepEqual(state.Flags, tt.wantFlags) {
				t.Errorf("expected flags %v, got %v", tt.wantFlags, state.Flags)
			}
		})
	}

	state := h.Recalculate()
	if !state.Complete {
		t.Error("expected questionnaire to be complete")
	}
	want := map[string]string{"human-subjects": "yes", "identifiable": "no", "proprietary": "yes"}
	if !reflect.DeepEqual(state.Answers, want) {
		t.Errorf("expected answers %v, got %v", want, state.Answers)
	}
}

func TestReplayDeterminism(t *testing.T) {
	h := NewHistory(catalogtest.New())
	mustAnswer(t, h, "human-subjects", "yes")
	h.Recalculate()
	mustAnswer(t, h, "identifiable", "no")
	mustAnswer(t, h, "proprietary", "no")

	first := h.Recalculate()
	for i := 0; i < 5; i++ {
		if again := h.Recalculate(); !reflect.DeepEqual(first, again) {
			t.Fatalf("recalculation %d differs: %+v vs %+v", i, first, again)
		}
	}

	folded := Fold("human-subjects", h.Entries())
	if !reflect.DeepEqual(first, folded) {
		t.Errorf("fold of entries differs from history state: %+v vs %+v", folded, first)
	}
}

func TestTruncateOnDiverge(t *testing.T) {
	h := NewHistory(catalogtest.New())
	mustAnswer(t, h, "human-subjects", "yes")
	mustAnswer(t, h, "identifiable", "no")
	mustAnswer(t, h, "proprietary", "yes")

	back := h.GoBackTo(0)
	if back.QuestionID != "identifiable" {
		t.Errorf("expected to return to identifiable, got %q", back.QuestionID)
	}
	if back.Tier != "" {
		t.Errorf("expected tier cleared, got %q", back.Tier)
	}

	state := mustAnswer(t, h, "identifiable", "yes")
	if h.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", h.Len())
	}
	if state.Tier != "restricted" || !state.Complete {
		t.Errorf("expected restricted and complete, got %+v", state)
	}
	if _, ok := state.Answers["proprietary"]; ok {
		t.Error("answers from the discarded branch must not survive")
	}
	wantFlags := []string{"human_subjects", "phi", "irb"}
	if !reflect.DeepEqual(state.Flags, wantFlags) {
		t.Errorf("expected flags %v, got %v", wantFlags, state.Flags)
	}
}

func TestFlagClearedThenSetAgain(t *testing.T) {
	h := NewHistory(catalogtest.New())
	mustAnswer(t, h, "human-subjects", "yes")
	state := mustAnswer(t, h, "identifiable", "no")
	if state.HasFlag("human_subjects") {
		t.Fatal("expected human_subjects cleared")
	}

	state = mustAnswer(t, h, "proprietary", "readd")
	if !state.HasFlag("human_subjects") {
		t.Error("flag set again by a later entry must be present")
	}
	if !state.HasFlag("irb") {
		t.Error("expected irb to survive")
	}
}

func TestGoBackBeforeFirstQuestion(t *testing.T) {
	h := NewHistory(catalogtest.New())
	mustAnswer(t, h, "human-subjects", "no")
	mustAnswer(t, h, "proprietary", "yes")

	state := h.GoBackTo(-1)
	if h.Len() != 0 {
		t.Errorf("expected empty history, got %d entries", h.Len())
	}
	if state.QuestionID != "human-subjects" || state.Tier != "" {
		t.Errorf("expected fresh state, got %+v", state)
	}
}

func TestGoBackOne(t *testing.T) {
	h := NewHistory(catalogtest.New())
	if _, ok := h.GoBackOne(); ok {
		t.Error("expected nothing to undo on empty history")
	}

	mustAnswer(t, h, "human-subjects", "no")
	mustAnswer(t, h, "proprietary", "yes")

	state, ok := h.GoBackOne()
	if !ok {
		t.Fatal("expected undo to succeed")
	}
	if state.QuestionID != "proprietary" || state.Tier != "public" {
		t.Errorf("unexpected state after undo: %+v", state)
	}
	if h.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", h.Len())
	}
}

func TestUnknownAnswerLeavesHistory(t *testing.T) {
	h := NewHistory(catalogtest.New())
	mustAnswer(t, h, "human-subjects", "yes")

	if _, ok := h.Answer("identifiable", "maybe"); ok {
		t.Error("expected unknown option to be rejected")
	}
	if _, ok := h.Answer("nonexistent", "yes"); ok {
		t.Error("expected unknown question to be rejected")
	}
	if h.Len() != 1 {
		t.Errorf("expected history unchanged, got %d entries", h.Len())
	}
}

func TestOptionsPreview(t *testing.T) {
	h := NewHistory(catalogtest.New())

	preview := h.OptionsPreview("identifiable")
	want := []OptionPreview{
		{Label: "Yes", Value: "yes", LeadsTier: "restricted", LeadsTo: ResultDestination},
		{Label: "No, de-identified", Value: "no", LeadsTier: "internal", LeadsTo: "proprietary"},
	}
	if !reflect.DeepEqual(preview, want) {
		t.Errorf("unexpected preview:\n got %+v\nwant %+v", preview, want)
	}
	if h.Len() != 0 {
		t.Error("preview must not mutate history")
	}

	if got := h.OptionsPreview("nonexistent"); len(got) != 0 {
		t.Errorf("expected empty preview for unknown question, got %+v", got)
	}
}

func TestPath(t *testing.T) {
	h := NewHistory(catalogtest.New())
	mustAnswer(t, h, "human-subjects", "no")
	mustAnswer(t, h, "proprietary", "no")

	path := h.Path()
	if len(path) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(path))
	}
	if path[0].QuestionText != "Does the project involve human subjects data?" || path[0].Tier != "public" {
		t.Errorf("unexpected first step: %+v", path[0])
	}
	if path[1].Index != 1 || path[1].NextQuestionID != catalog.NextComplete {
		t.Errorf("unexpected second step: %+v", path[1])
	}
}
