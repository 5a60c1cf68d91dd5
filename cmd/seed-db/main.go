package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/oakmart/promo-engine/internal/domain/auth"
	"github.com/oakmart/promo-engine/internal/domain/promo"
	"github.com/oakmart/promo-engine/internal/storage/postgres"
)

func main() {
	var (
		databaseURL  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or PROMO_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or PROMO_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("PROMO_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or PROMO_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("PROMO_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedPromotions(ctx, postgres.NewPromotionRepository(pool)); err != nil {
		return errors.Wrap(err, "seed promotions")
	}

	if err := seedAPIKey(ctx, postgres.NewAPIKeyRepository(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedPromotions(ctx context.Context, repo *postgres.PromotionRepository) error {
	slog.Info("seeding demo promotions")

	now := time.Now().UTC()
	promotions := []promo.Promotion{
		{
			ID:          "summer-sale",
			Name:        promo.TextByLocale(map[string]string{"en": "Summer Sale", "de": "Sommerschlussverkauf"}),
			Description: promo.Text("20% off carts over $100"),
			Type:        promo.TypeCart,
			Status:      promo.StatusActive,
			Activation:  promo.ActivationCode,
			Codes:       &promo.Codes{Single: "SAVE20"},
			Rules: promo.Rules{
				Conditions: []promo.Condition{
					{Type: promo.ConditionCartSubtotal, Operator: promo.OpGte, Value: promo.MoneyValue(decimal.NewFromInt(10000), "USD")},
				},
				Actions: []promo.Action{
					{Type: promo.ActionPercentage, Value: promo.NumberValue(decimal.NewFromInt(20)), ApplyTo: "cart_subtotal"},
				},
			},
			Priority:  10,
			Stackable: true,
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:          "welcome-shipping",
			Name:        promo.Text("Free Shipping for First Purchase"),
			Description: promo.Text("Shipping on us for your first order"),
			Type:        promo.TypeShipping,
			Status:      promo.StatusActive,
			Activation:  promo.ActivationAutomatic,
			Rules: promo.Rules{
				Conditions: []promo.Condition{
					{Type: promo.ConditionFirstPurchase, Value: promo.BoolValue(true)},
				},
				Actions: []promo.Action{
					{Type: promo.ActionShippingPercent, Value: promo.NumberValue(decimal.NewFromInt(100))},
				},
			},
			Priority:  5,
			Stackable: true,
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:          "spend-more-save-more",
			Name:        promo.Text("Spend More Save More"),
			Description: promo.Text("Tiered savings that grow with the cart"),
			Type:        promo.TypeCart,
			Status:      promo.StatusActive,
			Activation:  promo.ActivationAutomatic,
			Rules: promo.Rules{
				Actions: []promo.Action{
					{Type: promo.ActionTiered, Tiers: []promo.Tier{
						{MinValue: promo.NumberValue(decimal.NewFromInt(5000)), DiscountType: promo.TierPercentage, DiscountValue: promo.NumberValue(decimal.NewFromInt(5))},
						{MinValue: promo.NumberValue(decimal.NewFromInt(10000)), DiscountType: promo.TierPercentage, DiscountValue: promo.NumberValue(decimal.NewFromInt(10))},
						{MinValue: promo.NumberValue(decimal.NewFromInt(20000)), DiscountType: promo.TierPercentage, DiscountValue: promo.NumberValue(decimal.NewFromInt(15))},
					}},
				},
			},
			Priority:  1,
			Stackable: false,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	for n := range promotions {
		p := &promotions[n]
		if err := repo.Create(ctx, p); err != nil {
			// Re-runs hit the primary key; overwrite with the current seed.
			if updateErr := repo.Update(ctx, p); updateErr != nil {
				return errors.Wrapf(err, "seed promotion %s", p.ID)
			}
		}
		slog.Info("seeded promotion", slog.String("id", p.ID))
	}

	return nil
}

func seedAPIKey(ctx context.Context, repo *postgres.APIKeyRepository, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	info := &auth.APIKeyInfo{
		ID:      "default",
		KeyHash: auth.HashKey([]byte(pepper), apiKey),
		Name:    "Default admin key",
		Scopes:  []string{"admin"},
	}
	if err := repo.Create(ctx, info); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("seeded API key", slog.String("id", info.ID), slog.String("name", info.Name))
	return nil
}
