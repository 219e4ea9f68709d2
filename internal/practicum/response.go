package practicum

import "encoding/json"

// Homework is one reviewed submission as reported by the API.
// Transient: it only lives for the duration of one poll cycle.
type Homework struct {
	Name   string
	Status string
}

// StatusResponse is the validated body of a homework_statuses call.
type StatusResponse struct {
	Homeworks   []Homework
	CurrentDate int64
}

// CheckResponse validates the decoded body and converts it into a
// StatusResponse. It is a pass-through check: no data is dropped or
// rewritten, only rejected.
//
// Numbers must be decoded with json.Decoder.UseNumber so current_date
// survives as an integer.
func CheckResponse(body any) (*StatusResponse, error) {
	m, ok := body.(map[string]any)
	if !ok {
		return nil, &ShapeError{Reason: "body is not a JSON object"}
	}

	rawList, ok := m["homeworks"]
	if !ok {
		return nil, &ShapeError{Reason: `key "homeworks" not found`}
	}
	rawDate, ok := m["current_date"]
	if !ok {
		return nil, &ShapeError{Reason: `key "current_date" not found`}
	}

	list, ok := rawList.([]any)
	if !ok {
		return nil, &ShapeError{Reason: `value for key "homeworks" is not a list`}
	}

	num, ok := rawDate.(json.Number)
	if !ok {
		return nil, &ShapeError{Reason: `value for key "current_date" is not an integer`}
	}
	date, err := num.Int64()
	if err != nil {
		return nil, &ShapeError{Reason: `value for key "current_date" is not an integer`}
	}

	out := &StatusResponse{CurrentDate: date, Homeworks: make([]Homework, 0, len(list))}
	for _, raw := range list {
		item, ok := raw.(map[string]any)
		if !ok {
			return nil, &ShapeError{Reason: "homework item is not a JSON object"}
		}
		hw := Homework{}
		if v, ok := item["homework_name"].(string); ok {
			hw.Name = v
		}
		if v, ok := item["status"].(string); ok {
			hw.Status = v
		}
		// Empty name/status are left for ParseStatus to reject so a bad
		// item fails its batch, not the whole validation step.
		out.Homeworks = append(out.Homeworks, hw)
	}
	return out, nil
}
