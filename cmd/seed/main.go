// Command seed fills the database with a realistic user, ledger, transactions
// and goals, then prints a bearer token for that user.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	goalsrepo "github.com/FACorreiaa/finance-assistant/internal/domain/goals/repository"
	goalsservice "github.com/FACorreiaa/finance-assistant/internal/domain/goals/service"
	ledgerrepo "github.com/FACorreiaa/finance-assistant/internal/domain/ledger/repository"
	txrepo "github.com/FACorreiaa/finance-assistant/internal/domain/transactions/repository"
	txservice "github.com/FACorreiaa/finance-assistant/internal/domain/transactions/service"
	userrepo "github.com/FACorreiaa/finance-assistant/internal/domain/user/repository"
	"github.com/FACorreiaa/finance-assistant/pkg/config"
	"github.com/FACorreiaa/finance-assistant/pkg/db"
	"github.com/FACorreiaa/finance-assistant/pkg/interceptors"
	"github.com/FACorreiaa/finance-assistant/pkg/money"
)

type stores struct {
	users  userrepo.UserRepository
	ledger ledgerrepo.LedgerRepository
	txs    txrepo.TransactionRepository
	goals  goalsrepo.GoalRepository
}

// knownUser stands in for the users table during a dry run
type knownUser uuid.UUID

func (u knownUser) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	return uuid.UUID(u) == id, nil
}

func main() {
	var (
		email  = flag.String("email", "demo@example.com", "email of the seeded user")
		months = flag.Int("months", 6, "months of history to generate")
		seed   = flag.Int64("seed", 42, "random seed")
		dryRun = flag.Bool("dry-run", false, "generate into memory without touching the database")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(logger, *email, *months, *seed, *dryRun); err != nil {
		logger.Error("seed failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger, email string, months int, seed int64, dryRun bool) error {
	if months <= 0 {
		return fmt.Errorf("months must be positive, got %d", months)
	}
	cfg := config.Read()
	ctx := context.Background()

	user := &userrepo.User{
		ID:           uuid.New(),
		Email:        email,
		DisplayName:  "Demo User",
		CurrencyCode: cfg.Server.DefaultCurrency,
	}

	var st stores
	var users txservice.UserDirectory
	if dryRun {
		st = stores{
			ledger: ledgerrepo.NewMemoryLedgerRepository(),
			txs:    txrepo.NewMemoryTransactionRepository(),
			goals:  goalsrepo.NewMemoryGoalRepository(),
		}
		users = knownUser(user.ID)
	} else {
		database, err := db.New(db.Config{
			DSN:             cfg.Database.DSN(),
			MaxConns:        4,
			MinConns:        1,
			MaxConnLifetime: 5 * time.Minute,
			MaxConnIdleTime: time.Minute,
		}, logger)
		if err != nil {
			return err
		}
		defer database.Close()
		if err := database.RunMigrations(); err != nil {
			return err
		}
		st = stores{
			users:  userrepo.NewPostgresUserRepository(database.Pool),
			ledger: ledgerrepo.NewPostgresLedgerRepository(database.Pool),
			txs:    txrepo.NewPostgresTransactionRepository(database.Pool),
			goals:  goalsrepo.NewPostgresGoalRepository(database.Pool),
		}
		if err := st.users.Create(ctx, user); err != nil {
			return err
		}
		users = st.users
	}

	currency := user.CurrencyCode
	txSvc := txservice.NewService(st.txs, users, st.ledger, currency, logger)
	goalSvc := goalsservice.NewService(st.goals, currency, logger)

	g := &generator{
		gen:      money.NewGenerator(seed),
		ledger:   st.ledger,
		txs:      txSvc,
		goals:    goalSvc,
		userID:   user.ID,
		currency: currency,
	}
	if err := g.ledgerData(ctx); err != nil {
		return err
	}
	count, err := g.history(ctx, months)
	if err != nil {
		return err
	}
	if err := g.savingsGoals(ctx); err != nil {
		return err
	}

	stats, err := txSvc.Statistics(ctx, user.ID, txrepo.Criteria{}, false)
	if err != nil {
		return err
	}
	logger.Info("seed completed",
		slog.String("user_id", user.ID.String()),
		slog.Int("transactions", count),
		slog.String("income", stats.TotalIncome.String()),
		slog.String("expense", stats.TotalExpense.String()),
		slog.Bool("dry_run", dryRun),
	)

	tokens := interceptors.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, 30*24*time.Hour)
	token, err := tokens.IssueToken(user.ID, user.Email)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
