package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
	"unicode"
	"unicode/utf8"

	"classifieds/internal/cache"
	"classifieds/internal/models"
	"classifieds/internal/observability"
	"classifieds/internal/repository"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	titleWeight        = 0.25
	imageWeight        = 0.30
	descriptionWeight  = 0.25
	completenessWeight = 0.20

	titleMinLength = 10
	titleMaxLength = 100

	descriptionMinLength   = 100
	descriptionMaxLength   = 1000
	descriptionShortLength = 50
	descriptionKeywordCap  = 50

	completenessFieldCount = 8
	maxSubScore            = 100
)

var (
	titleSpamPhrases    = []string{"urgent", "hurry", "limited", "click here", "free"}
	descriptionKeywords = []string{"condition", "specification", "warranty", "location", "contact"}
)

// ScoreBreakdown is the result of scoring one listing.
type ScoreBreakdown struct {
	Title        int `json:"title_score"`
	Image        int `json:"image_score"`
	Description  int `json:"description_score"`
	Completeness int `json:"completeness_score"`
	Overall      int `json:"overall_score"`
}

// RescoreSummary reports the outcome of a batch recalculation.
type RescoreSummary struct {
	Scored  int64 `json:"scored"`
	Missing int64 `json:"missing"`
}

// QualityService computes and persists listing quality scores.
type QualityService struct {
	listings repository.ListingRepository
	scores   repository.QualityScoreRepository
	cacheTTL time.Duration
}

// NewQualityService returns a QualityService. A non-positive cacheTTL uses
// cache.DefaultQualityScoreTTL.
func NewQualityService(listings repository.ListingRepository, scores repository.QualityScoreRepository, cacheTTL time.Duration) *QualityService {
	if cacheTTL <= 0 {
		cacheTTL = cache.DefaultQualityScoreTTL
	}
	return &QualityService{
		listings: listings,
		scores:   scores,
		cacheTTL: cacheTTL,
	}
}

// Breakdown scores a listing without touching storage.
func (s *QualityService) Breakdown(listing *models.Listing) ScoreBreakdown {
	b := ScoreBreakdown{
		Title:        titleScore(listing.Title),
		Image:        imageScore(len(listing.Media)),
		Description:  descriptionScore(listing.Description),
		Completeness: completenessScore(listing),
	}
	b.Overall = overallScore(b.Title, b.Image, b.Description, b.Completeness)
	return b
}

func titleScore(title string) int {
	if strings.TrimSpace(title) == "" {
		return 0
	}

	score := 10
	switch n := utf8.RuneCountInString(title); {
	case n >= titleMinLength && n <= titleMaxLength:
		score = 40
	case n > titleMaxLength:
		score = 20
	}

	lower := strings.ToLower(title)
	if !containsAny(lower, titleSpamPhrases) {
		score += 30
	}

	switch {
	case title == cases.Title(language.Und).String(lower): // fresh Caser per call, they are stateful
		score += 30
	case !isAllUpper(title):
		score += 20
	}

	return min(score, maxSubScore)
}

// isAllUpper is true only when every rune is an upper-case letter, so
// spaces and digits make it false.
func isAllUpper(s string) bool {
	for _, r := range s {
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

func imageScore(count int) int {
	switch {
	case count <= 0:
		return 0
	case count == 1:
		return 40
	case count == 2:
		return 60
	case count <= 4:
		return 80
	default:
		return 100
	}
}

func descriptionScore(description string) int {
	if strings.TrimSpace(description) == "" {
		return 0
	}

	score := 10
	switch n := utf8.RuneCountInString(description); {
	case n >= descriptionMinLength && n <= descriptionMaxLength:
		score = 50
	case n >= descriptionShortLength:
		score = 30
	}

	lower := strings.ToLower(description)
	bonus := 0
	for _, kw := range descriptionKeywords {
		if strings.Contains(lower, kw) {
			bonus += 10
		}
	}
	score += min(bonus, descriptionKeywordCap)

	return min(score, maxSubScore)
}

func completenessScore(l *models.Listing) int {
	filled := 0
	for _, ok := range []bool{
		strings.TrimSpace(l.Title) != "",
		strings.TrimSpace(l.Description) != "",
		l.Price > 0,
		strings.TrimSpace(l.Category) != "",
		strings.TrimSpace(l.Location) != "",
		strings.TrimSpace(l.Contact) != "",
		strings.TrimSpace(l.Condition) != "",
		len(l.Media) > 0,
	} {
		if ok {
			filled++
		}
	}
	return (filled * 100) / completenessFieldCount
}

// overallScore truncates toward zero. Each product is rounded on its own to
// prevent fused multiply-adds.
func overallScore(title, image, description, completeness int) int {
	t := float64(float64(title) * titleWeight)
	i := float64(float64(image) * imageWeight)
	d := float64(float64(description) * descriptionWeight)
	c := float64(float64(completeness) * completenessWeight)
	return int(t + i + d + c)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// CalculateAndSaveQualityScore scores the listing and upserts its single
// QualityScore row. It returns ErrListingNotFound, writing nothing, when the
// listing does not exist.
func (s *QualityService) CalculateAndSaveQualityScore(ctx context.Context, listingID uint) (score *models.QualityScore, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "QualityService", "CalculateAndSaveQualityScore", listingID)
	defer func() { observability.EndSpan(span, err) }()

	listing, err := s.listings.GetWithMedia(ctx, listingID)
	if err != nil {
		if isNotFound(err) {
			observability.QualityScoreCalculations.WithLabelValues("not_found").Inc()
			return nil, ErrListingNotFound
		}
		observability.QualityScoreCalculations.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load listing %d: %w", listingID, err)
	}

	b := s.Breakdown(listing)
	saved, err := s.scores.Upsert(ctx, &models.QualityScore{
		ListingID:         listingID,
		TitleScore:        b.Title,
		ImageScore:        b.Image,
		DescriptionScore:  b.Description,
		CompletenessScore: b.Completeness,
		OverallScore:      b.Overall,
	})
	if err != nil {
		observability.QualityScoreCalculations.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("save quality score for listing %d: %w", listingID, err)
	}

	cache.InvalidateListing(ctx, listingID)
	observability.QualityScoreCalculations.WithLabelValues("saved").Inc()
	observability.QualityOverallScore.Observe(float64(b.Overall))

	slog.DebugContext(ctx, "quality score saved",
		slog.Uint64("listing_id", uint64(listingID)),
		slog.Int("overall_score", b.Overall),
	)
	return saved, nil
}

// errNotScored marks a listing with no stored score yet.
var errNotScored = errors.New("listing not scored")

// GetOrCalculate returns the stored score, calculating it first when the
// listing has never been scored.
func (s *QualityService) GetOrCalculate(ctx context.Context, listingID uint) (*models.QualityScore, error) {
	score, err := s.storedScore(ctx, listingID)
	if !errors.Is(err, errNotScored) {
		return score, err
	}

	if _, err := s.CalculateAndSaveQualityScore(ctx, listingID); err != nil {
		return nil, err
	}
	return s.storedScore(ctx, listingID)
}

// storedScore reads the score through the cache. A fill that races a
// recalculation is not cached.
func (s *QualityService) storedScore(ctx context.Context, listingID uint) (*models.QualityScore, error) {
	var score models.QualityScore
	err := cache.Aside(ctx, cache.QualityScoreKey(listingID), &score, s.cacheTTL, func() error {
		stored, err := s.scores.GetByListingID(ctx, listingID)
		if err != nil {
			if isNotFound(err) {
				return errNotScored
			}
			return fmt.Errorf("load quality score for listing %d: %w", listingID, err)
		}
		score = *stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &score, nil
}

// RecalculateAll rescores every listing with at most concurrency workers.
// Listings deleted mid-run are counted as missing; any other error stops
// the run.
func (s *QualityService) RecalculateAll(ctx context.Context, concurrency int) (RescoreSummary, error) {
	ids, err := s.listings.ListIDs(ctx)
	if err != nil {
		return RescoreSummary{}, fmt.Errorf("list listings: %w", err)
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	var scored, missing atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, id := range ids {
		g.Go(func() error {
			_, err := s.CalculateAndSaveQualityScore(gctx, id)
			switch {
			case err == nil:
				scored.Add(1)
			case errors.Is(err, ErrListingNotFound):
				missing.Add(1)
			default:
				return err
			}
			return nil
		})
	}

	err = g.Wait()
	return RescoreSummary{Scored: scored.Load(), Missing: missing.Load()}, err
}
