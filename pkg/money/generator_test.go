package money

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerator_Reproducible(t *testing.T) {
	a := NewGenerator(42)
	b := NewGenerator(42)

	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Purchase(EUR).Amount(), b.Purchase(EUR).Amount())
	}
}

func TestGenerator_Bounds(t *testing.T) {
	g := NewGenerator(7)
	for i := 0; i < 200; i++ {
		amt := g.Bill(EUR).Amount()
		assert.GreaterOrEqual(t, amt, int64(2000))
		assert.LessOrEqual(t, amt, int64(50000))
	}
	assert.Equal(t, int64(500), g.RandomAmount(EUR, 500, 500).Amount())
}

func TestGenerator_DateBetween(t *testing.T) {
	g := NewGenerator(1)
	from := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		d := g.DateBetween(from, to)
		assert.False(t, d.Before(from))
		assert.False(t, d.After(to))
		assert.Zero(t, d.Hour())
	}
}

func TestGenerator_DescriptionsCoverCategories(t *testing.T) {
	for _, c := range ExpenseCategories {
		assert.NotEmpty(t, ExpenseDescriptions[c], c)
	}
	for _, c := range IncomeCategories {
		assert.NotEmpty(t, IncomeDescriptions[c], c)
	}
}
