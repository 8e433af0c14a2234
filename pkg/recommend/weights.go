package recommend

import (
	"fmt"
	"strings"

	"github.com/campusradar/campusradar/internal/models"
)

// Weights controls how strongly each profile field pulls the preference
// vector. A field's text is repeated weight times before embedding.
type Weights struct {
	Name       int
	Gender     int
	Role       int
	Department int
	Year       int
	Interests  int
	PastEvents int
}

func DefaultWeights() Weights {
	return Weights{
		Name:       0,
		Gender:     1,
		Role:       3,
		Department: 2,
		Year:       1,
		Interests:  5,
		PastEvents: 1,
	}
}

// WeightedText builds the query text for a profile. Interests carry a rank
// bonus on top of their field weight: the first interest of n is repeated n
// times per weight unit, the last once.
func WeightedText(prefs models.Preferences, w Weights) string {
	var b strings.Builder

	repeat(&b, prefs.Username, w.Name)
	repeat(&b, prefs.Gender, w.Gender)
	repeat(&b, prefs.Role, w.Role)
	repeat(&b, prefs.Department, w.Department)
	if prefs.Year > 0 {
		repeat(&b, fmt.Sprintf("year %d student", prefs.Year), w.Year)
	}

	for i, interest := range prefs.Interests {
		rank := len(prefs.Interests) - i
		repeat(&b, interest, rank*w.Interests)
	}

	repeat(&b, strings.Join(prefs.PastEvents, " "), w.PastEvents)

	return strings.TrimSpace(b.String())
}

func repeat(b *strings.Builder, text string, times int) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	for i := 0; i < times; i++ {
		b.WriteString(text)
		b.WriteString(" ")
	}
}
