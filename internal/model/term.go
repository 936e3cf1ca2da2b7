package model

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Term represents an academic term offered by the scheduling service
type Term struct {
	Code int // larger codes are more recent terms
	Name string
	ID   string
}

type termJSON struct {
	Code flexInt `json:"code"`
	Name *string `json:"name"`
	ID   *string `json:"id"`
}

// ParseTerm builds a Term from one entry of courseSearchTerms
func ParseTerm(raw json.RawMessage) (Term, error) {
	var data termJSON
	if err := json.Unmarshal(raw, &data); err != nil {
		return Term{}, fmt.Errorf("failed to decode term: %w", err)
	}
	if !data.Code.Set {
		return Term{}, missingField("code")
	}
	id, err := requireString("id", data.ID)
	if err != nil {
		return Term{}, err
	}

	name := UnknownName
	if data.Name != nil {
		name = *data.Name
	}

	return Term{
		Code: data.Code.Value,
		Name: name,
		ID:   id,
	}, nil
}

func (t Term) String() string {
	return fmt.Sprintf("Term %s", t.Name)
}

// SortTermsNewestFirst orders terms by descending code
func SortTermsNewestFirst(terms []Term) {
	slices.SortStableFunc(terms, func(a, b Term) int {
		return b.Code - a.Code
	})
}
