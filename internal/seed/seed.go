package seed

import (
	"context"
	"fmt"
	"log"

	"classifieds/internal/bootstrap"
	"classifieds/internal/models"
	"classifieds/internal/service"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumListings int
	// ReportedShare is the fraction of listings that receive demo reports.
	ReportedShare float64
	ShouldClean   bool
}

// Summary counts what one run created.
type Summary struct {
	Users    int
	Listings int
	Reports  int
	Hidden   int
}

// demoReasons cycle so some listings cross the spam or fraud threshold.
var demoReasons = []string{
	"This looks like spam",
	"Seller asked for payment outside the site, fraud",
	"Wrong category",
	"SPAM repost",
	"possible fraud",
	"spam",
}

// Seeder populates the database through the same services the API uses,
// so every listing is scored and every report is moderated.
type Seeder struct {
	db       *gorm.DB
	factory  *Factory
	services bootstrap.Services
}

// NewSeeder creates a Seeder.
func NewSeeder(db *gorm.DB, services bootstrap.Services, seed int64) *Seeder {
	return &Seeder{db: db, factory: NewFactory(db, seed), services: services}
}

// ClearAll deletes every seeded table, children first.
func (s *Seeder) ClearAll() error {
	log.Println("🧹 Cleaning database...")
	for _, model := range []interface{}{
		&models.QualityScore{},
		&models.Report{},
		&models.Media{},
		&models.Listing{},
		&models.User{},
	} {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

// Run creates users and listings, scores each listing and files reports
// against a share of them. The first user is an admin.
func (s *Seeder) Run(ctx context.Context, opts Options) (Summary, error) {
	var sum Summary
	if opts.NumUsers <= 0 {
		return sum, fmt.Errorf("at least one user is required")
	}

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		user, err := s.factory.CreateUser(func(u *models.User) {
			if i == 0 {
				u.Name = "Marketplace Admin"
				u.IsAdmin = true
			}
		})
		if err != nil {
			return sum, err
		}
		users = append(users, user)
	}
	sum.Users = len(users)
	log.Printf("👤 Created %d users", sum.Users)

	reportEvery := 0
	if opts.ReportedShare > 0 {
		reportEvery = int(1 / opts.ReportedShare)
		if reportEvery < 1 {
			reportEvery = 1
		}
	}

	for i := 0; i < opts.NumListings; i++ {
		owner := users[i%len(users)]
		listing, err := s.factory.CreateListing(owner, s.factory.faker.Number(0, 6))
		if err != nil {
			return sum, err
		}
		sum.Listings++

		if _, err := s.services.Quality.CalculateAndSaveQualityScore(ctx, listing.ID); err != nil {
			return sum, fmt.Errorf("score listing %d: %w", listing.ID, err)
		}

		if reportEvery == 0 || i%reportEvery != 0 || len(users) < 2 {
			continue
		}
		filed, hidden, err := s.fileReports(ctx, listing, users, i)
		if err != nil {
			return sum, err
		}
		sum.Reports += filed
		if hidden {
			sum.Hidden++
		}
	}

	log.Printf("📦 Created %d listings, %d reports, %d auto-hidden", sum.Listings, sum.Reports, sum.Hidden)
	return sum, nil
}

// fileReports files one to four reports from users other than the owner.
func (s *Seeder) fileReports(ctx context.Context, listing *models.Listing, users []*models.User, offset int) (int, bool, error) {
	count := 1 + offset%4
	filed := 0
	hidden := false
	for j := 0; j < count; j++ {
		reporter := users[(offset+j+1)%len(users)]
		if reporter.ID == listing.UserID {
			continue
		}
		sub, err := s.services.Reports.Submit(ctx, service.SubmitReportInput{
			ListingID:  listing.ID,
			ReporterID: reporter.ID,
			Reason:     demoReasons[(offset+j)%len(demoReasons)],
		})
		if err != nil {
			return filed, hidden, fmt.Errorf("report listing %d: %w", listing.ID, err)
		}
		filed++
		if sub.Moderation != nil && sub.Moderation.Hidden {
			hidden = true
		}
	}
	return filed, hidden, nil
}
