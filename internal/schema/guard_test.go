package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dqpipe/pkg/contracts/domain"
)

func TestCheck(t *testing.T) {
	expected := domain.ExpectedSchema{
		Required: []string{"client_id", "email", "signup_date"},
		Optional: []string{"phone", "notes"},
	}

	tests := []struct {
		name            string
		header          []string
		verdict         domain.DriftVerdict
		missingRequired []string
		missingOptional []string
		unexpected      []string
	}{
		{
			name:    "exact match",
			header:  []string{"client_id", "email", "signup_date", "phone", "notes"},
			verdict: domain.VerdictMatch,
		},
		{
			name:    "column order is irrelevant",
			header:  []string{"notes", "signup_date", "phone", "client_id", "email"},
			verdict: domain.VerdictMatch,
		},
		{
			name:            "missing optional is tolerable",
			header:          []string{"client_id", "email", "signup_date"},
			verdict:         domain.VerdictDriftTolerable,
			missingOptional: []string{"phone", "notes"},
		},
		{
			name:       "unexpected column is tolerable",
			header:     []string{"client_id", "email", "signup_date", "phone", "notes", "extra"},
			verdict:    domain.VerdictDriftTolerable,
			unexpected: []string{"extra"},
		},
		{
			name:            "missing required is fatal",
			header:          []string{"client_id", "signup_date", "phone", "notes"},
			verdict:         domain.VerdictDriftFatal,
			missingRequired: []string{"email"},
		},
		{
			name:            "rename surfaces as missing plus unexpected",
			header:          []string{"client_id", "e_mail", "signup_date", "phone", "notes"},
			verdict:         domain.VerdictDriftFatal,
			missingRequired: []string{"email"},
			unexpected:      []string{"e_mail"},
		},
		{
			name:            "empty header misses everything",
			header:          nil,
			verdict:         domain.VerdictDriftFatal,
			missingRequired: []string{"client_id", "email", "signup_date"},
			missingOptional: []string{"phone", "notes"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := Check(tt.header, expected)
			assert.Equal(t, tt.verdict, verdict.Verdict)
			assert.Equal(t, tt.missingRequired, verdict.MissingRequired)
			assert.Equal(t, tt.missingOptional, verdict.MissingOptional)
			assert.Equal(t, tt.unexpected, verdict.Unexpected)
			assert.Equal(t, tt.verdict == domain.VerdictDriftFatal, verdict.Fatal())
		})
	}
}
