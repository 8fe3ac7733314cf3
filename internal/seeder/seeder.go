// Package seeder populates the database with demo accounts and a plausible
// spread of hazard reports for local development.
package seeder

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/coastwatch-systems/coastwatch/internal/logging"
	"github.com/coastwatch-systems/coastwatch/internal/models"
	"github.com/coastwatch-systems/coastwatch/internal/repository"
)

// DefaultPassword is the password for every seeded account.
const DefaultPassword = "coastwatch-demo"

// coastalSite anchors generated reports to real shoreline so the map demo
// looks right.
type coastalSite struct {
	name string
	lat  float64
	lon  float64
}

var coastalSites = []coastalSite{
	{"Chennai Marina", 13.05, 80.28},
	{"Kochi Fort", 9.96, 76.24},
	{"Visakhapatnam RK Beach", 17.71, 83.32},
	{"Puri Beach", 19.80, 85.83},
	{"Mumbai Juhu", 19.10, 72.83},
	{"Mangaluru Panambur", 12.94, 74.80},
	{"Puducherry Promenade", 11.93, 79.83},
	{"Kanyakumari", 8.08, 77.55},
}

// Options controls how much data Run generates.
type Options struct {
	Citizens  int
	Analysts  int
	Reports   int
	SpreadDur time.Duration
	Seed      int64
}

func DefaultOptions() Options {
	return Options{
		Citizens:  20,
		Analysts:  3,
		Reports:   200,
		SpreadDur: 30 * 24 * time.Hour,
		Seed:      time.Now().UnixNano(),
	}
}

// Seeder writes generated users and reports through the repository.
type Seeder struct {
	repo repository.Repository
	log  *logging.Logger
}

func New(repo repository.Repository, log *logging.Logger) *Seeder {
	if log == nil {
		log = logging.Default()
	}
	return &Seeder{repo: repo, log: log}
}

// Run generates users first, then reports attributed to random citizens.
// Roughly 40% of reports are verified by a random analyst.
func (s *Seeder) Run(ctx context.Context, opts Options) error {
	faker := gofakeit.New(opts.Seed)
	rng := rand.New(rand.NewSource(opts.Seed))

	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}

	citizens, err := s.seedUsers(ctx, faker, string(hash), opts.Citizens, models.RoleCitizen)
	if err != nil {
		return err
	}
	analysts, err := s.seedUsers(ctx, faker, string(hash), opts.Analysts, models.RoleAnalyst)
	if err != nil {
		return err
	}
	if _, err := s.seedAdmin(ctx, string(hash)); err != nil {
		return err
	}
	if len(citizens) == 0 || len(analysts) == 0 {
		return fmt.Errorf("need at least one citizen and one analyst to seed reports")
	}

	now := time.Now().UTC()
	for i := 0; i < opts.Reports; i++ {
		site := coastalSites[rng.Intn(len(coastalSites))]
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate report ID: %w", err)
		}

		observed := now.Add(-time.Duration(rng.Float64() * float64(opts.SpreadDur)))
		report := &models.Report{
			ID:          id.String(),
			UserID:      citizens[rng.Intn(len(citizens))],
			EventType:   models.EventTypes[rng.Intn(len(models.EventTypes))],
			Description: faker.Sentence(10),
			// Scatter up to ~5km around the site.
			Longitude:    site.lon + (rng.Float64()-0.5)*0.1,
			Latitude:     site.lat + (rng.Float64()-0.5)*0.1,
			LocationName: site.name,
			MediaURLs:    []string{},
			Timestamp:    observed,
		}
		if err := s.repo.CreateReport(ctx, report); err != nil {
			return fmt.Errorf("failed to seed report: %w", err)
		}

		if rng.Float64() < 0.4 {
			verifier := analysts[rng.Intn(len(analysts))]
			if _, err := s.repo.VerifyReport(ctx, report.ID, verifier); err != nil {
				return fmt.Errorf("failed to verify seeded report: %w", err)
			}
		}
	}

	s.log.Info("seed complete",
		"citizens", opts.Citizens, "analysts", opts.Analysts, "reports", opts.Reports)
	return nil
}

func (s *Seeder) seedUsers(ctx context.Context, faker *gofakeit.Faker, hash string, n int, role models.Role) ([]string, error) {
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate user ID: %w", err)
		}
		user := &models.User{
			ID:           id.String(),
			Name:         faker.Name(),
			Email:        fmt.Sprintf("%s-%d@%s", role, i+1, "coastwatch.example"),
			PasswordHash: hash,
			Role:         role,
		}
		if err := s.repo.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to seed user: %w", err)
		}
		ids = append(ids, user.ID)
	}
	return ids, nil
}

func (s *Seeder) seedAdmin(ctx context.Context, hash string) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate user ID: %w", err)
	}
	admin := &models.User{
		ID:           id.String(),
		Name:         "Coastwatch Admin",
		Email:        "admin@coastwatch.example",
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	}
	if err := s.repo.CreateUser(ctx, admin); err != nil {
		return "", fmt.Errorf("failed to seed admin: %w", err)
	}
	return admin.ID, nil
}
