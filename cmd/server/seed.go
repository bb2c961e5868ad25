package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/samber/oops"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"jobtrack/internal/db"
	apperrors "jobtrack/internal/errors"
	"jobtrack/internal/model"
	"jobtrack/internal/service"
)

// SeedUser is one entry of a seed document.
type SeedUser struct {
	FirstName      string                `json:"firstName"`
	LastName       string                `json:"lastName"`
	Email          string                `json:"email"`
	Password       string                `json:"password"`
	CurrentTitle   string                `json:"currentTitle"`
	TargetSalary   *decimal.Decimal      `json:"targetSalary"`
	Location       string                `json:"location"`
	JobPreferences *model.JobPreferences `json:"jobPreferences"`
	EmploymentType string                `json:"employmentType"`
}

// SeedResult counts what a seed run did.
type SeedResult struct {
	Created  int
	Existing int
	Rejected int
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Register users from a JSON document",
		Long: `Read a JSON array of users from a file or an http(s) URL and register
each one through the account service. Existing emails are left untouched.`,
		RunE: runSeed,
	}
	cmd.Flags().String("source", "", "path or http(s) URL of the seed document")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	source, err := cmd.Flags().GetString("source")
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	logger := newLogger(cfg)
	ctx := cmd.Context()

	users, err := fetchSeedUsers(ctx, source)
	if err != nil {
		return oops.Code("SEED_FETCH_FAILED").With("source", source).Wrap(err)
	}
	cmd.Printf("Fetched %d users from %s\n", len(users), source)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := db.Migrate(a.db, false); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}

	res, err := seedUsers(ctx, a.svc, users, func(u SeedUser, err error) {
		cmd.Printf("Skipping %s: %v\n", u.Email, err)
	})
	if err != nil {
		return oops.Code("SEED_FAILED").Wrap(err)
	}

	cmd.Println("Seed completed successfully!")
	cmd.Printf("  - New users created: %d\n", res.Created)
	cmd.Printf("  - Existing users skipped: %d\n", res.Existing)
	cmd.Printf("  - Invalid users rejected: %d\n", res.Rejected)
	return nil
}

// fetchSeedUsers reads the seed document from a local path or an http(s) URL.
func fetchSeedUsers(ctx context.Context, source string) ([]SeedUser, error) {
	var body []byte
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch seed document: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("seed source returned status code: %d", resp.StatusCode)
		}
		if body, err = io.ReadAll(resp.Body); err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}
	} else {
		var err error
		if body, err = os.ReadFile(source); err != nil {
			return nil, err
		}
	}

	var users []SeedUser
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return users, nil
}

// seedUsers registers every user. Duplicates and invalid entries are counted
// and reported through skip; any other failure aborts the run.
func seedUsers(ctx context.Context, svc service.AuthService, users []SeedUser, skip func(SeedUser, error)) (SeedResult, error) {
	var res SeedResult
	for _, u := range users {
		_, err := svc.Register(ctx, service.RegisterInput{
			FirstName:      u.FirstName,
			LastName:       u.LastName,
			Email:          u.Email,
			Password:       u.Password,
			CurrentTitle:   u.CurrentTitle,
			TargetSalary:   u.TargetSalary,
			Location:       u.Location,
			JobPreferences: u.JobPreferences,
			EmploymentType: u.EmploymentType,
		})
		switch {
		case err == nil:
			res.Created++
		case errors.Is(err, apperrors.ErrDuplicateEmail):
			res.Existing++
		case errors.Is(err, apperrors.ErrValidation):
			res.Rejected++
			if skip != nil {
				skip(u, err)
			}
		default:
			return res, fmt.Errorf("register %s: %w", u.Email, err)
		}
	}
	return res, nil
}
