package main

import (
	"context"
	"log"
	"os"
	"strings"

	"ai-textassist-be/internal/entity"
	"ai-textassist-be/internal/repository/specification"
	"ai-textassist-be/internal/repository/unitofwork"
	"ai-textassist-be/internal/tier"
	"ai-textassist-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database
	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}
	factory := unitofwork.NewRepositoryFactory(db)
	ctx := context.Background()

	log.Println("Starting seeder...")

	// 3. Model configurations
	if err := seedModelConfigs(ctx, factory); err != nil {
		log.Fatal("Error: Failed to seed model configurations:", err)
	}

	// 4. Admin account
	if err := seedAdmin(ctx, factory); err != nil {
		log.Fatal("Error: Failed to seed admin:", err)
	}

	log.Println("Success: seeding completed.")
}

func seedModelConfigs(ctx context.Context, factory unitofwork.RepositoryFactory) error {
	log.Println("Seeding model configurations...")

	free := envOr("LLM_MODEL_FREE", "gpt-4o-mini")
	paid := envOr("LLM_MODEL_PAID", "gpt-4o")
	models := map[tier.Tier]string{
		tier.Free:    free,
		tier.Starter: paid,
		tier.Pro:     paid,
	}

	repo := factory.NewUnitOfWork(ctx).AiModelConfigRepository()
	for _, feature := range []entity.ActionType{entity.ActionTypeCorrection, entity.ActionTypeTranslation} {
		for t, model := range models {
			existing, err := repo.FindOne(ctx, specification.ByFeatureTier{Feature: feature, Tier: t})
			if err != nil {
				return err
			}
			if existing != nil {
				log.Printf("  = %s/%s already set to %s", feature, t, existing.Model)
				continue
			}
			if err := repo.Upsert(ctx, &entity.AiModelConfig{Feature: feature, Tier: t, Model: model}); err != nil {
				return err
			}
			log.Printf("  + %s/%s -> %s", feature, t, model)
		}
	}
	return nil
}

func seedAdmin(ctx context.Context, factory unitofwork.RepositoryFactory) error {
	email := strings.ToLower(strings.TrimSpace(os.Getenv("SEED_ADMIN_EMAIL")))
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Println("Info: SEED_ADMIN_EMAIL or SEED_ADMIN_PASSWORD not set, skipping admin")
		return nil
	}

	repo := factory.NewUnitOfWork(ctx).UserRepository()
	existing, err := repo.FindOne(ctx, specification.ByEmail{Email: email})
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.Role != entity.UserRoleAdmin {
			existing.Role = entity.UserRoleAdmin
			if err := repo.Update(ctx, existing); err != nil {
				return err
			}
			log.Printf("Promoted %s to admin", email)
		}
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := &entity.User{
		Id:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     "Administrator",
		Role:         entity.UserRoleAdmin,
	}
	if err := repo.Create(ctx, admin); err != nil {
		return err
	}
	log.Printf("Created admin %s", email)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
