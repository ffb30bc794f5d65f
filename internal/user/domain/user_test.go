package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUser_Age(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	date := func(y int, m time.Month, d int) *time.Time {
		t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return &t
	}

	tests := []struct {
		name     string
		birth    *time.Time
		expected int
	}{
		{"cumpleaños ya pasado este año", date(1994, 1, 1), 30},
		{"cumpleaños aún no ha pasado este año", date(1999, 12, 31), 24},
		{"cumpleaños hoy", date(1984, 6, 15), 40},
		{"día siguiente en el mismo mes", date(1984, 6, 16), 39},
		{"sin fecha de nacimiento", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &User{Email: "test@example.com", Name: "Test", BirthDate: tt.birth}
			assert.Equal(t, tt.expected, user.Age(now))
		})
	}
}

func TestAgeRangeCriteria(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	lo, hi := 18, 30

	conds := AgeRangeCriteria{Min: &lo, Max: &hi, Now: now}.ToConditions()
	if assert.Len(t, conds, 2) {
		assert.Equal(t, "birthDate", conds[0].Key())
		assert.Equal(t, now.AddDate(-18, 0, 0), conds[0].Value())
		// con 30 años cumplidos sigue dentro: nacido después de hace 31 años
		assert.Equal(t, now.AddDate(-31, 0, 0), conds[1].Value())
	}

	assert.Empty(t, AgeRangeCriteria{Now: now}.ToConditions())
}
