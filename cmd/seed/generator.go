package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	goalsservice "github.com/FACorreiaa/finance-assistant/internal/domain/goals/service"
	ledgerrepo "github.com/FACorreiaa/finance-assistant/internal/domain/ledger/repository"
	txrepo "github.com/FACorreiaa/finance-assistant/internal/domain/transactions/repository"
	txservice "github.com/FACorreiaa/finance-assistant/internal/domain/transactions/service"
	"github.com/FACorreiaa/finance-assistant/pkg/money"
)

type generator struct {
	gen      *money.Generator
	ledger   ledgerrepo.LedgerRepository
	txs      *txservice.Service
	goals    *goalsservice.Service
	userID   uuid.UUID
	currency string

	profile    uuid.UUID
	checking   uuid.UUID
	savings    uuid.UUID
	categories map[string]uuid.UUID
}

func (g *generator) ledgerData(ctx context.Context) error {
	profile := &ledgerrepo.Profile{UserID: g.userID, Name: "Personal"}
	if err := g.ledger.CreateProfile(ctx, profile); err != nil {
		return err
	}
	g.profile = profile.ID

	checking := &ledgerrepo.Account{UserID: g.userID, ProfileID: &profile.ID, Name: "Checking", Type: "checking", CurrencyCode: g.currency}
	savings := &ledgerrepo.Account{UserID: g.userID, ProfileID: &profile.ID, Name: "Savings", Type: "savings", CurrencyCode: g.currency}
	for _, a := range []*ledgerrepo.Account{checking, savings} {
		if err := g.ledger.CreateAccount(ctx, a); err != nil {
			return err
		}
	}
	g.checking, g.savings = checking.ID, savings.ID

	g.categories = make(map[string]uuid.UUID)
	add := func(names []string, kind ledgerrepo.CategoryKind) error {
		for _, name := range names {
			c := &ledgerrepo.Category{UserID: g.userID, Name: name, Kind: kind}
			if err := g.ledger.CreateCategory(ctx, c); err != nil {
				return err
			}
			g.categories[name] = c.ID
		}
		return nil
	}
	if err := add(money.IncomeCategories, ledgerrepo.CategoryKindIncome); err != nil {
		return err
	}
	return add(money.ExpenseCategories, ledgerrepo.CategoryKindExpense)
}

func (g *generator) create(ctx context.Context, in txservice.TransactionInput) error {
	in.Currency = g.currency
	if in.Type != txrepo.TypeTransfer && !in.Type.IsDebt() {
		in.AccountID = &g.checking
	}
	in.ProfileID = &g.profile
	if _, err := g.txs.Create(ctx, g.userID, in); err != nil {
		return fmt.Errorf("seed %s %q: %w", in.Type, in.Description, err)
	}
	return nil
}

func (g *generator) category(name string) *uuid.UUID {
	id := g.categories[name]
	return &id
}

// history generates salary, rent, bills, purchases and a savings transfer per month
func (g *generator) history(ctx context.Context, months int) (int, error) {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)

	var inputs []txservice.TransactionInput
	for m := 0; m < months; m++ {
		start := first.AddDate(0, m, 0)
		end := start.AddDate(0, 1, -1)
		if end.After(today) {
			end = today
		}
		inDays := func(day int) time.Time {
			d := start.AddDate(0, 0, day-1)
			if d.After(end) {
				return end
			}
			return d
		}

		inputs = append(inputs,
			txservice.TransactionInput{Type: txrepo.TypeIncome, AmountMinor: g.gen.Salary(g.currency).Amount(),
				Description: g.gen.Pick(money.IncomeDescriptions["Salary"]), Date: inDays(1), CategoryID: g.category("Salary")},
			txservice.TransactionInput{Type: txrepo.TypeExpense, AmountMinor: g.gen.RandomAmount(g.currency, 60000, 120000).Amount(),
				Description: "Monthly rent", Date: inDays(2), CategoryID: g.category("Rent")},
			txservice.TransactionInput{Type: txrepo.TypeTransfer, AmountMinor: g.gen.RandomAmount(g.currency, 10000, 50000).Amount(),
				Description: "Move to savings", Date: inDays(3), FromAccountID: &g.checking, ToAccountID: &g.savings},
			txservice.TransactionInput{Type: txrepo.TypeExpense, AmountMinor: g.gen.Bill(g.currency).Amount(),
				Description: g.gen.Pick(money.ExpenseDescriptions["Utilities"]), Date: inDays(10), CategoryID: g.category("Utilities")},
		)
		if m%2 == 1 {
			inputs = append(inputs, txservice.TransactionInput{Type: txrepo.TypeIncome, AmountMinor: g.gen.RandomAmount(g.currency, 20000, 120000).Amount(),
				Description: g.gen.Pick(money.IncomeDescriptions["Freelance"]), Date: g.gen.DateBetween(start, end), CategoryID: g.category("Freelance")})
		}
		for i := 0; i < 12; i++ {
			name := g.gen.Pick(money.ExpenseCategories)
			if name == "Rent" {
				continue
			}
			inputs = append(inputs, txservice.TransactionInput{Type: txrepo.TypeExpense, AmountMinor: g.gen.Purchase(g.currency).Amount(),
				Description: g.gen.Pick(money.ExpenseDescriptions[name]), Date: g.gen.DateBetween(start, end), CategoryID: g.category(name)})
		}
	}

	counterparty := g.gen.PersonName()
	phone := g.gen.Phone()
	inputs = append(inputs, txservice.TransactionInput{Type: txrepo.TypeDebtGive, AmountMinor: g.gen.RandomAmount(g.currency, 5000, 30000).Amount(),
		Description: "Lent for concert tickets", Date: today.AddDate(0, 0, -7), CounterpartyName: &counterparty, CounterpartyPhone: &phone})

	for _, in := range inputs {
		if err := g.create(ctx, in); err != nil {
			return 0, err
		}
	}
	return len(inputs), nil
}

func (g *generator) savingsGoals(ctx context.Context) error {
	deadline := time.Now().UTC().AddDate(0, 6, 0)
	deadline = time.Date(deadline.Year(), deadline.Month(), deadline.Day(), 0, 0, 0, 0, time.UTC)

	goals := []goalsservice.GoalInput{
		{Title: "Emergency fund", TargetAmountMinor: 500000, Currency: g.currency},
		{Title: "Summer holiday", TargetAmountMinor: 150000, Currency: g.currency, Deadline: &deadline},
	}
	for _, in := range goals {
		goal, err := g.goals.CreateGoal(ctx, g.userID, in)
		if err != nil {
			return err
		}
		for i := 0; i < 3; i++ {
			note := "Monthly top-up"
			if _, _, err := g.goals.Contribute(ctx, g.userID, goal.ID, g.gen.RandomAmount(g.currency, 5000, 25000).Amount(), &note); err != nil {
				return err
			}
		}
	}
	return nil
}
