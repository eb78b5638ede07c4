package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/alecgard/wayfare/internal/config"
	"github.com/alecgard/wayfare/internal/trip"
	"github.com/alecgard/wayfare/internal/user"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed demo users and an example trip",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

var demoUsers = []user.CreateUserInput{
	{Email: "maya@example.com", Username: "maya", Password: "wayfare-demo"},
	{Email: "jonas@example.com", Username: "jonas", Password: "wayfare-demo"},
	{Email: "priya@example.com", Username: "priya", Password: "wayfare-demo"},
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	userStore := user.NewStore(pool)
	tripStore := trip.NewPGStore(pool)
	tripService := trip.NewService(tripStore, user.NewDirectoryAdapter(userStore))

	// Check if seed has already run.
	if _, err := userStore.GetByEmail(ctx, demoUsers[0].Email); err == nil {
		slog.Info("demo data already exists, skipping seed")
		return nil
	} else if !errors.Is(err, user.ErrNotFound) {
		return fmt.Errorf("checking existing users: %w", err)
	}

	users := make([]*user.User, 0, len(demoUsers))
	for _, input := range demoUsers {
		u, err := userStore.Create(ctx, input)
		if err != nil {
			return fmt.Errorf("creating user %q: %w", input.Email, err)
		}
		slog.Info("created user", "email", u.Email, "id", u.ID)
		users = append(users, u)
	}

	organizer := users[0]
	start := time.Now().AddDate(0, 1, 0).Truncate(24 * time.Hour)
	end := start.AddDate(0, 0, 10)

	t, err := tripService.CreateTrip(ctx, trip.CreateTripInput{
		Title:       "Lisbon & Porto",
		Description: "Ten days along the Portuguese coast.",
		StartDate:   &start,
		EndDate:     &end,
		TripData:    map[string]interface{}{"budget_eur": 1800},
	}, organizer.ID)
	if err != nil {
		return fmt.Errorf("creating demo trip: %w", err)
	}

	if _, err := tripService.AddMember(ctx, t.ID, trip.AddMemberInput{
		UserID: users[1].ID,
		Role:   trip.RoleParticipant,
	}, organizer.ID); err != nil {
		return fmt.Errorf("adding participant: %w", err)
	}
	if _, err := tripService.AddMember(ctx, t.ID, trip.AddMemberInput{
		UserID: users[2].ID,
		Role:   trip.RoleViewer,
	}, organizer.ID); err != nil {
		return fmt.Errorf("adding viewer: %w", err)
	}

	slog.Info("created demo trip", "id", t.ID, "title", t.Title)
	fmt.Printf("\n=== Demo Data Seeded ===\n")
	fmt.Printf("Users:   %d created (password: wayfare-demo)\n", len(users))
	fmt.Printf("Trip:    %s (%s)\n", t.Title, t.ID)
	fmt.Printf("\nTry it:\n")
	fmt.Printf("  curl -X POST http://localhost:8080/api/v1/auth/login -d '{\"email\":\"%s\",\"password\":\"wayfare-demo\"}'\n", organizer.Email)
	fmt.Printf("  curl -H 'Authorization: Bearer <token>' http://localhost:8080/api/v1/trips\n")

	return nil
}
