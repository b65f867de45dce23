// Package cmd - classify command
package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"research-planner/core/questionnaire"
	"research-planner/core/types"
	"research-planner/internal/errors"
)

var (
	classifyAnswers []string
	classifyPreview string
)

// classifyCmd replays answers through the classification questionnaire
var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify data by answering the questionnaire",
	Long: `Replay answers through the data classification questionnaire and print
the resulting tier, flags and the next question. Answering a question that was
already answered discards every answer after it.

Examples:
  research-planner classify
  research-planner classify --answer human-subjects=yes --answer identifiable=no
  research-planner classify --preview identifiable`,
	Args: cobra.NoArgs,
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().StringArrayVarP(&classifyAnswers, "answer", "a", nil, "answer as question=value (repeatable)")
	classifyCmd.Flags().StringVar(&classifyPreview, "preview", "", "show where each option of a question leads")
}

type classifyResult struct {
	State    questionnaire.State           `json:"state"`
	Tier     *types.Tier                   `json:"tier,omitempty"`
	Path     []questionnaire.Step          `json:"path"`
	Next     string                        `json:"next_question,omitempty"`
	Previews []questionnaire.OptionPreview `json:"options,omitempty"`
}

// parsePair splits key=value
func parsePair(flag, s string) (string, string, error) {
	k, v, ok := strings.Cut(s, "=")
	k = strings.TrimSpace(k)
	if !ok || k == "" {
		return "", "", errors.Newf(errors.TypeInput, "--%s expects key=value, got %q", flag, s)
	}
	return k, strings.TrimSpace(v), nil
}

func runClassify(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog("")
	if err != nil {
		return err
	}

	h := questionnaire.NewHistory(cat)
	for _, a := range classifyAnswers {
		q, v, err := parsePair("answer", a)
		if err != nil {
			return err
		}
		if _, ok := h.Answer(q, v); !ok {
			return errors.Newf(errors.TypeInput, "%q is not an answer to question %q", v, q)
		}
	}
	st := h.Recalculate()

	res := classifyResult{State: st, Path: h.Path()}
	if t, ok := cat.Tier(st.Tier); ok {
		res.Tier = t
	}

	preview := classifyPreview
	if preview == "" && !st.Complete {
		preview = st.QuestionID
	}
	if preview != "" {
		if _, ok := cat.Node(preview); !ok {
			return errors.NotFound("question", preview)
		}
		res.Next = preview
		res.Previews = h.OptionsPreview(preview)
	}

	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), res)
	}

	w := writer(cmd)
	w.Classification(st, res.Tier, res.Path)
	if res.Next != "" {
		node, _ := cat.Node(res.Next)
		w.Question(node, res.Previews)
	}
	return nil
}
