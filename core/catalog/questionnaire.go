// Package catalog - Classification questionnaire graph
package catalog

// NextComplete is the Next value of an option that ends the questionnaire
const NextComplete = "complete"

// Questionnaire is a rooted DAG of yes/no-style questions
type Questionnaire struct {
	Start string
	Nodes []*Node
}

// Node is one question
type Node struct {
	ID       string
	Question string
	Help     string
	Options  []Option
}

// Option is one answer to a question and its effect on classification
type Option struct {
	Label       string
	Value       string
	Next        string
	SetsTier    string
	SetsFlags   []string
	ClearsFlags []string
}

// IsTerminal reports whether choosing the option completes the questionnaire
func (o Option) IsTerminal() bool {
	return o.Next == NextComplete
}

// Option looks up an option of the node by value
func (n *Node) Option(value string) (Option, bool) {
	for _, o := range n.Options {
		if o.Value == value {
			return o, true
		}
	}
	return Option{}, false
}
