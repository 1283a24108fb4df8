package flow

import (
	"errors"
	"strconv"
	"strings"

	"github.com/Knetic/govaluate"
)

// CompileWhen checks that a choice condition parses.
func CompileWhen(when string) error {
	cond := strings.TrimSpace(when)
	if cond == "" || isLiteral(cond) {
		return nil
	}
	_, err := govaluate.NewEvaluableExpression(cond)
	return err
}

// EvaluateWhen evaluates a choice condition against session answers.
// Empty condition returns true. Supports "true"/"false" literals.
// Answers that look numeric are exposed as numbers so `employees >= 10` works.
func EvaluateWhen(when string, answers map[string]string) (bool, error) {
	cond := strings.TrimSpace(when)
	if cond == "" {
		return true, nil
	}
	switch strings.ToLower(cond) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}

	expr, err := govaluate.NewEvaluableExpression(cond)
	if err != nil {
		return false, err
	}
	params := make(map[string]interface{}, len(answers))
	for _, v := range expr.Vars() {
		// unanswered questions compare as empty strings
		params[v] = ""
	}
	for k, v := range answers {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			params[k] = f
			continue
		}
		params[k] = v
	}
	result, err := expr.Evaluate(params)
	if err != nil {
		return false, err
	}
	switch v := result.(type) {
	case bool:
		return v, nil
	default:
		return false, errors.New("condition did not evaluate to boolean")
	}
}

func isLiteral(cond string) bool {
	switch strings.ToLower(cond) {
	case "true", "false":
		return true
	}
	return false
}
