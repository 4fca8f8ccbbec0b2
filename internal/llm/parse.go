package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"jobhelper/internal/shared/apperr"
)

// QAPair is one extracted question and its generated answer.
type QAPair struct {
	Index    int    `json:"index"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

var (
	ErrNoJSON        = errors.New("no JSON object found")
	ErrInvalidJSON   = errors.New("invalid JSON")
	ErrMissingQAPair = errors.New("missing qaPair")
)

type qaEnvelope struct {
	QAPair *[]qaItem `json:"qaPair"`
}

type qaItem struct {
	Index    *int    `json:"index"`
	Question *string `json:"question"`
	Answer   *string `json:"answer"`
}

// Parse extracts the QA pairs from a raw completion. Text around the outermost
// braces is ignored. Pairs keep the order of the source array, not of index.
func Parse(raw string) ([]QAPair, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return nil, apperr.Format("", ErrNoJSON)
	}
	candidate := raw[start : end+1]

	var env qaEnvelope
	if err := json.Unmarshal([]byte(candidate), &env); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, apperr.Format("", ErrMissingQAPair)
		}
		return nil, apperr.Format("", fmt.Errorf("%w: %v", ErrInvalidJSON, err))
	}
	if env.QAPair == nil {
		return nil, apperr.Format("", ErrMissingQAPair)
	}

	pairs := make([]QAPair, 0, len(*env.QAPair))
	for _, item := range *env.QAPair {
		if item.Index == nil || item.Question == nil || item.Answer == nil {
			return nil, apperr.Format("", ErrMissingQAPair)
		}
		pairs = append(pairs, QAPair{
			Index:    *item.Index,
			Question: *item.Question,
			Answer:   *item.Answer,
		})
	}
	return pairs, nil
}
