package domain

import (
	"strings"
	"time"
)

type SearchEvent struct {
	Term       string
	UID        string
	OccurredAt time.Time
}

// NormalizeTerm is the key search popularity is counted under.
func NormalizeTerm(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}
