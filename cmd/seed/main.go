package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"notes-credit-ledger/internal/config"
	"notes-credit-ledger/internal/domain/model"
	"notes-credit-ledger/internal/domain/ports/repository"
	pg "notes-credit-ledger/internal/infra/db/postgres"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	planRepo := pg.NewPlanRepo(pool)
	userRepo := pg.NewUserRepo(pool)

	if cfg.Runtime.Dev {
		demo, err := model.NewUser(uuid.NewString(), "Demo Student", "+989120000000")
		if err != nil {
			log.Fatalf("build demo user: %v", err)
		}
		if err := userRepo.Save(ctx, repository.NoTX, demo); err != nil {
			log.Fatalf("save demo user: %v", err)
		}
		fmt.Printf("seeded demo user: %s\n", demo.ID)
	}

	// If plans already exist, do nothing
	plans, err := planRepo.ListActive(ctx, repository.NoTX)
	if err != nil {
		log.Fatalf("list plans: %v", err)
	}
	if len(plans) > 0 {
		fmt.Printf("%d plans already present. No changes.\n", len(plans))
		for _, p := range plans {
			fmt.Printf("  - %s (days=%d, minutes=%s, price=%d IRR)\n", p.Name, p.DurationDays, p.MaxMinutes, p.PriceIRR)
		}
		return
	}

	// Seed a few sample plans for testing the credit flow
	seed := []struct {
		Name      string
		Days      int
		Minutes   float64
		Notebooks int
		Price     int64
	}{
		{"Starter", 7, 30, 5, 150_000},
		{"Pro", 30, 120, 20, 690_000},
		{"Ultra", 90, 500, 100, 1_890_000},
	}

	for _, s := range seed {
		p, err := model.NewPlan(uuid.NewString(), s.Name, s.Days, model.MinutesFromFloat(s.Minutes), s.Notebooks, s.Price)
		if err != nil {
			log.Fatalf("build plan %q: %v", s.Name, err)
		}
		if err := planRepo.Save(ctx, repository.NoTX, p); err != nil {
			log.Fatalf("save plan %q: %v", s.Name, err)
		}
		fmt.Printf("seeded: %s (id=%s, days=%d, minutes=%s, price=%d IRR)\n", p.Name, p.ID, p.DurationDays, p.MaxMinutes, p.PriceIRR)
	}

	fmt.Println("✅ Seeding complete.")
}
