package flow

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrStepNotFound = errors.New("flow step not found")
	ErrEmptyGraph   = errors.New("flow graph has no steps")
)

// Choice is one button offered by a step.
type Choice struct {
	Label      string `json:"label" yaml:"label"`
	Value      string `json:"value,omitempty" yaml:"value,omitempty"`
	NextStepID string `json:"next" yaml:"next"`
	// When is an optional condition over the session answers, e.g. `area == "tokyo"`.
	When string `json:"when,omitempty" yaml:"when,omitempty"`
}

// Step is a node of the survey flow graph.
type Step struct {
	ID       string   `json:"id" yaml:"id"`
	Prompt   string   `json:"prompt" yaml:"prompt"`
	Terminal bool     `json:"terminal,omitempty" yaml:"terminal,omitempty"`
	Choices  []Choice `json:"choices,omitempty" yaml:"choices,omitempty"`
}

// Clone returns a deep copy so callers cannot mutate a shared graph.
func (s *Step) Clone() *Step {
	if s == nil {
		return nil
	}
	out := *s
	out.Choices = append([]Choice(nil), s.Choices...)
	return &out
}

// Offers reports whether nextStepID is the target of one of the choices
// available for the given answers.
func (s *Step) Offers(nextStepID string, answers map[string]string) bool {
	for _, c := range s.Offered(answers) {
		if c.NextStepID == nextStepID {
			return true
		}
	}
	return false
}

// Offered returns the choices whose When condition holds for answers.
// A condition that fails to evaluate hides the choice.
func (s *Step) Offered(answers map[string]string) []Choice {
	out := make([]Choice, 0, len(s.Choices))
	for _, c := range s.Choices {
		ok, err := EvaluateWhen(c.When, answers)
		if err != nil || !ok {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Document is the serialized form of a flow graph.
type Document struct {
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Root  string `json:"root" yaml:"root"`
	Steps []Step `json:"steps" yaml:"steps"`
}

// Issue describes a problem found while validating a flow document.
type Issue struct {
	StepID string
	Fatal  bool
	Reason string
}

func (i Issue) String() string {
	level := "warning"
	if i.Fatal {
		level = "error"
	}
	if i.StepID == "" {
		return fmt.Sprintf("%s: %s", level, i.Reason)
	}
	return fmt.Sprintf("%s: step %s: %s", level, i.StepID, i.Reason)
}

// Check validates a flow document. Dangling next references are reported
// as warnings: such targets are terminal and never a legal transition.
func (d *Document) Check() []Issue {
	var issues []Issue
	if len(d.Steps) == 0 {
		return []Issue{{Fatal: true, Reason: ErrEmptyGraph.Error()}}
	}
	ids := make(map[string]struct{}, len(d.Steps))
	for _, s := range d.Steps {
		id := strings.TrimSpace(s.ID)
		if id == "" {
			issues = append(issues, Issue{Fatal: true, Reason: "step id is required"})
			continue
		}
		if _, dup := ids[id]; dup {
			issues = append(issues, Issue{StepID: id, Fatal: true, Reason: "duplicate step id"})
			continue
		}
		ids[id] = struct{}{}
	}
	if _, ok := ids[d.Root]; !ok {
		issues = append(issues, Issue{StepID: d.Root, Fatal: true, Reason: "root step is not defined"})
	}
	for _, s := range d.Steps {
		for _, c := range s.Choices {
			if c.NextStepID == "" {
				issues = append(issues, Issue{StepID: s.ID, Fatal: true, Reason: fmt.Sprintf("choice %q has no next step", c.Label)})
				continue
			}
			if _, ok := ids[c.NextStepID]; !ok {
				issues = append(issues, Issue{StepID: s.ID, Reason: fmt.Sprintf("choice %q points to unknown step %q", c.Label, c.NextStepID)})
			}
			if err := CompileWhen(c.When); err != nil {
				issues = append(issues, Issue{StepID: s.ID, Fatal: true, Reason: fmt.Sprintf("choice %q: invalid condition: %v", c.Label, err)})
			}
		}
	}
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Fatal && !issues[j].Fatal })
	return issues
}

// FatalIssues joins the fatal issues of a check into one error.
func FatalIssues(issues []Issue) error {
	var errs []error
	for _, i := range issues {
		if i.Fatal {
			errs = append(errs, errors.New(i.String()))
		}
	}
	return errors.Join(errs...)
}
