package money

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// Generator produces realistic amounts and descriptions for seed data and tests.
type Generator struct {
	faker *gofakeit.Faker
}

// NewGenerator creates a generator with a fixed seed so runs are reproducible.
func NewGenerator(seed int64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// RandomAmount returns an amount between minMinor and maxMinor inclusive.
func (g *Generator) RandomAmount(currency string, minMinor, maxMinor int64) *Money {
	if maxMinor <= minMinor {
		return New(minMinor, currency)
	}
	return New(minMinor+int64(g.faker.Number(0, int(maxMinor-minMinor))), currency)
}

// Salary returns a monthly salary between 1,500 and 6,000.
func (g *Generator) Salary(currency string) *Money {
	return g.RandomAmount(currency, 150000, 600000)
}

// Purchase returns an everyday purchase between 1 and 250.
func (g *Generator) Purchase(currency string) *Money {
	return g.RandomAmount(currency, 100, 25000)
}

// Bill returns a recurring bill between 20 and 500.
func (g *Generator) Bill(currency string) *Money {
	return g.RandomAmount(currency, 2000, 50000)
}

// DateBetween returns a day between from and to, truncated to midnight UTC.
func (g *Generator) DateBetween(from, to time.Time) time.Time {
	d := g.faker.DateRange(from, to)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// Pick returns a random element of options.
func (g *Generator) Pick(options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[g.faker.Number(0, len(options)-1)]
}

// PersonName returns a random full name for debt counterparties.
func (g *Generator) PersonName() string {
	return g.faker.Name()
}

// Phone returns a random phone number.
func (g *Generator) Phone() string {
	return g.faker.Phone()
}

// ExpenseCategories are the default expense categories seeded for new users.
var ExpenseCategories = []string{
	"Groceries", "Rent", "Transportation", "Utilities",
	"Dining Out", "Entertainment", "Health", "Shopping",
}

// IncomeCategories are the default income categories seeded for new users.
var IncomeCategories = []string{"Salary", "Freelance", "Bonus", "Interest"}

// ExpenseDescriptions maps category names to plausible descriptions.
var ExpenseDescriptions = map[string][]string{
	"Groceries":      {"Weekly groceries", "Farmers market", "Supermarket run"},
	"Rent":           {"Monthly rent"},
	"Transportation": {"Metro card top-up", "Fuel", "Taxi ride"},
	"Utilities":      {"Electricity bill", "Internet bill", "Water bill"},
	"Dining Out":     {"Restaurant dinner", "Coffee and pastry", "Lunch with team"},
	"Entertainment":  {"Movie tickets", "Streaming subscription", "Concert"},
	"Health":         {"Pharmacy", "Gym membership", "Dentist"},
	"Shopping":       {"Clothing purchase", "Electronics", "Home supplies"},
}

// IncomeDescriptions maps income category names to plausible descriptions.
var IncomeDescriptions = map[string][]string{
	"Salary":    {"Monthly salary deposit"},
	"Freelance": {"Freelance payment", "Client invoice payment"},
	"Bonus":     {"Performance bonus"},
	"Interest":  {"Savings interest"},
}
