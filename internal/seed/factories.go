// Package seed provides helpers to create demo data for the marketplace
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"strings"

	"classifieds/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

var (
	categories = []string{"electronics", "furniture", "vehicles", "clothing", "sports", "books", "toys", "garden"}
	conditions = []string{"new", "like new", "good", "fair"}

	// Titles that score poorly, so demo data covers the whole range.
	lowEffortTitles = []string{"FREE", "URGENT SALE", "bike sale", "CHEAP CHEAP CHEAP CHEAP"}
)

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db    *gorm.DB
	faker *gofakeit.Faker
	seq   int
}

// NewFactory creates a Factory. A fixed seed gives repeatable data.
func NewFactory(db *gorm.DB, seed int64) *Factory {
	return &Factory{db: db, faker: gofakeit.New(seed)}
}

// CreateUser constructs and persists a sample user. Optional override
// functions may modify it before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	f.seq++
	user := &models.User{
		Name:  f.faker.Name(),
		Email: fmt.Sprintf("%d.%s", f.seq, strings.ToLower(f.faker.Email())),
	}
	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// BuildListing constructs an unsaved listing for owner. Roughly one in five
// listings gets a low-effort title and a thin description.
func (f *Factory) BuildListing(owner *models.User) *models.Listing {
	l := &models.Listing{
		UserID:   owner.ID,
		Status:   models.ListingStatusActive,
		IsActive: true,
	}

	if f.faker.Number(1, 5) == 1 {
		l.Title = f.faker.RandomString(lowEffortTitles)
		l.Description = f.faker.Sentence(6)
	} else {
		l.Title = fmt.Sprintf("%s %s %s", cases.Title(language.English).String(f.faker.Adjective()), f.faker.Noun(), f.faker.Noun())
		l.Description = f.faker.Paragraph(1, f.faker.Number(2, 8), 12, " ")
	}

	// Optional fields are left blank at random so completeness varies.
	if f.faker.Bool() || f.faker.Bool() {
		l.Price = f.faker.Price(5, 2500)
	}
	if f.faker.Bool() || f.faker.Bool() {
		l.Category = f.faker.RandomString(categories)
	}
	if f.faker.Bool() {
		l.Location = f.faker.City()
	}
	if f.faker.Bool() {
		l.Contact = f.faker.Phone()
	}
	if f.faker.Bool() {
		l.Condition = f.faker.RandomString(conditions)
	}
	return l
}

// CreateListing persists a listing for owner with mediaCount images.
func (f *Factory) CreateListing(owner *models.User, mediaCount int, overrides ...func(*models.Listing)) (*models.Listing, error) {
	l := f.BuildListing(owner)
	for _, override := range overrides {
		override(l)
	}

	err := f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(l).Error; err != nil {
			return err
		}
		for i := 0; i < mediaCount; i++ {
			name := f.faker.UUID() + ".jpg"
			media := models.Media{
				ListingID: l.ID,
				FileName:  name,
				FilePath:  "listings/" + name,
				MediaType: "image/jpeg",
			}
			if err := tx.Create(&media).Error; err != nil {
				return err
			}
			l.Media = append(l.Media, media)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create listing: %w", err)
	}
	return l, nil
}
