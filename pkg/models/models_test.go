package models

import "testing"

func TestBudget(t *testing.T) {
	tests := []struct {
		name     string
		limit    int
		dailyCap int
		expected int
	}{
		{"limit binds", 100, 1000, 100},
		{"daily cap binds", 100, 50, 50},
		{"equal", 100, 100, 100},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s := &RunState{Limit: test.limit, DailyCap: test.dailyCap}
			if got := s.Budget(); got != test.expected {
				t.Errorf("Budget() = %d, want %d", got, test.expected)
			}
		})
	}
}
