package http

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

// decodeAssessmentRequest reads a /generate-questions body field by field, so
// one malformed field does not discard the rest. An undecodable body is an
// empty request.
func decodeAssessmentRequest(body []byte) *entities.AssessmentRequest {
	req := &entities.AssessmentRequest{}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return req
	}

	var product map[string]json.RawMessage
	if json.Unmarshal(fields["product_info"], &product) == nil {
		req.Product.Name = rawString(product["name"])
		req.Product.Category = rawString(product["category"])
	}

	var history []json.RawMessage
	if json.Unmarshal(fields["qa_history"], &history) == nil {
		for _, item := range history {
			var entry map[string]json.RawMessage
			if json.Unmarshal(item, &entry) != nil {
				continue
			}
			question, hasQuestion := entry["question"]
			answer, hasAnswer := entry["answer"]
			req.History = append(req.History, entities.QAEntry{
				Question:     rawString(question),
				Answer:       rawString(answer),
				MissingField: !hasQuestion || !hasAnswer,
			})
		}
	}

	var score float64
	if json.Unmarshal(fields["current_score"], &score) == nil {
		req.CurrentScore = score
	}
	return req
}

// rawString returns raw as a string when it is a JSON string, else "".
func rawString(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

var errInvalidTopK = errors.New("invalid k")

// topK decodes the k of a query body from a JSON number or a numeric string.
// Fractions are truncated; null decodes as 0, the default.
type topK int

func (k *topK) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		if math.Abs(n) > math.MaxInt32 {
			return errInvalidTopK
		}
		*k = topK(int(n))
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return errInvalidTopK
		}
		*k = topK(v)
		return nil
	}
	return errInvalidTopK
}
