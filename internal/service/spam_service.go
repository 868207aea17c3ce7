package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"classifieds/internal/models"
	"classifieds/internal/observability"
	"classifieds/internal/repository"

	"golang.org/x/sync/errgroup"
)

const (
	spamKeyword  = "spam"
	fraudKeyword = "fraud"

	// stuffingTokenLimit is the most times one title word may repeat.
	stuffingTokenLimit = 3
)

// ModerationThresholds are the report counts at which a listing is hidden.
type ModerationThresholds struct {
	SpamReports  int
	FraudReports int
}

// DefaultModerationThresholds returns the stock thresholds (3 spam, 2 fraud).
func DefaultModerationThresholds() ModerationThresholds {
	return ModerationThresholds{SpamReports: 3, FraudReports: 2}
}

// ModerationOutcome describes what one moderation check found and did.
type ModerationOutcome struct {
	ListingID  uint `json:"listing_id"`
	SpamCount  int  `json:"spam_count"`
	FraudCount int  `json:"fraud_count"`
	IsSpam     bool `json:"is_spam"`
	IsFraud    bool `json:"is_fraud"`
	// Hidden is true only when this call moved the listing into the hold state.
	Hidden bool `json:"hidden"`
	// AlreadyHidden is true when the listing was held before this call.
	AlreadyHidden bool `json:"already_hidden"`
}

// ReviewSignals are the advisory detectors for manual review. They never
// hide a listing on their own.
type ReviewSignals struct {
	ListingID        uint `json:"listing_id"`
	KeywordStuffing  bool `json:"keyword_stuffing"`
	DuplicateImages  bool `json:"duplicate_images"`
	SpamReportCount  int  `json:"spam_report_count"`
	FraudReportCount int  `json:"fraud_report_count"`
}

// SpamService recounts report reasons and hides listings that cross the
// configured thresholds.
type SpamService struct {
	listings   repository.ListingRepository
	reports    repository.ReportRepository
	thresholds ModerationThresholds
	now        func() time.Time
}

// NewSpamService returns a SpamService. Non-positive thresholds fall back
// to the defaults.
func NewSpamService(listings repository.ListingRepository, reports repository.ReportRepository, thresholds ModerationThresholds) *SpamService {
	defaults := DefaultModerationThresholds()
	if thresholds.SpamReports <= 0 {
		thresholds.SpamReports = defaults.SpamReports
	}
	if thresholds.FraudReports <= 0 {
		thresholds.FraudReports = defaults.FraudReports
	}
	return &SpamService{
		listings:   listings,
		reports:    reports,
		thresholds: thresholds,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Thresholds returns the active thresholds.
func (s *SpamService) Thresholds() ModerationThresholds {
	return s.thresholds
}

// CountReportReasons counts reasons mentioning spam and fraud,
// case-insensitively. One reason may count toward both.
func CountReportReasons(reasons []string) (spam, fraud int) {
	for _, reason := range reasons {
		lower := strings.ToLower(reason)
		if strings.Contains(lower, spamKeyword) {
			spam++
		}
		if strings.Contains(lower, fraudKeyword) {
			fraud++
		}
	}
	return spam, fraud
}

// CheckAndHandleSpamReports recounts every report on the listing, stores the
// counts and hides the listing when a threshold is met. It never un-hides.
func (s *SpamService) CheckAndHandleSpamReports(ctx context.Context, listingID uint) (outcome *ModerationOutcome, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "SpamService", "CheckAndHandleSpamReports", listingID)
	defer func() { observability.EndSpan(span, err) }()

	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("load listing %d: %w", listingID, err)
	}

	reasons, err := s.reports.ReasonsForListing(ctx, listingID)
	if err != nil {
		return nil, err
	}

	spam, fraud := CountReportReasons(reasons)
	spamHit := spam >= s.thresholds.SpamReports
	fraudHit := fraud >= s.thresholds.FraudReports
	alreadyHidden := listing.Status == models.ListingStatusHidden && listing.IsModerationHeld()

	outcome = &ModerationOutcome{
		ListingID:     listingID,
		SpamCount:     spam,
		FraudCount:    fraud,
		IsSpam:        listing.IsSpam,
		IsFraud:       listing.IsFraud,
		AlreadyHidden: alreadyHidden,
	}
	update := repository.ModerationUpdate{SpamReportCount: spam, FraudReportCount: fraud}

	if spamHit || fraudHit {
		update.Hide = true
		if alreadyHidden {
			// Flags only accumulate on a held listing and the first hide time stays.
			update.IsSpam = listing.IsSpam || spamHit
			update.IsFraud = listing.IsFraud || fraudHit
		} else {
			hiddenAt := s.now()
			update.IsSpam = spamHit
			update.IsFraud = fraudHit
			update.HiddenAt = &hiddenAt
			outcome.Hidden = true
		}
		outcome.IsSpam = update.IsSpam
		outcome.IsFraud = update.IsFraud
	}

	if err := s.listings.UpdateModeration(ctx, listingID, update); err != nil {
		if isNotFound(err) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}

	switch {
	case outcome.Hidden:
		observability.ModerationChecks.WithLabelValues("hidden").Inc()
		observability.ListingsAutoHidden.WithLabelValues(observability.HideReason(spamHit, fraudHit)).Inc()
		slog.WarnContext(ctx, "listing auto-hidden after reports",
			slog.Uint64("listing_id", uint64(listingID)),
			slog.Int("spam_count", spam),
			slog.Int("fraud_count", fraud),
			slog.Bool("is_spam", update.IsSpam),
			slog.Bool("is_fraud", update.IsFraud),
		)
	case alreadyHidden:
		observability.ModerationChecks.WithLabelValues("already_hidden").Inc()
	default:
		observability.ModerationChecks.WithLabelValues("below_threshold").Inc()
	}

	return outcome, nil
}

// Recount refreshes the stored spam/fraud counters from the listing's
// reports without hiding or un-hiding it.
func (s *SpamService) Recount(ctx context.Context, listingID uint) (outcome *ModerationOutcome, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "SpamService", "Recount", listingID)
	defer func() { observability.EndSpan(span, err) }()

	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("load listing %d: %w", listingID, err)
	}

	reasons, err := s.reports.ReasonsForListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	spam, fraud := CountReportReasons(reasons)

	update := repository.ModerationUpdate{SpamReportCount: spam, FraudReportCount: fraud}
	if err := s.listings.UpdateModeration(ctx, listingID, update); err != nil {
		if isNotFound(err) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}

	return &ModerationOutcome{
		ListingID:     listingID,
		SpamCount:     spam,
		FraudCount:    fraud,
		IsSpam:        listing.IsSpam,
		IsFraud:       listing.IsFraud,
		AlreadyHidden: listing.Status == models.ListingStatusHidden && listing.IsModerationHeld(),
	}, nil
}

// RecountSummary totals one RecountAll sweep.
type RecountSummary struct {
	Checked int64
	Hidden  int64
	Missing int64
}

// RecountAll runs CheckAndHandleSpamReports for every listing with at most
// concurrency workers.
func (s *SpamService) RecountAll(ctx context.Context, concurrency int) (RecountSummary, error) {
	ids, err := s.listings.ListIDs(ctx)
	if err != nil {
		return RecountSummary{}, fmt.Errorf("list listings: %w", err)
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	var checked, hidden, missing atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, id := range ids {
		g.Go(func() error {
			outcome, err := s.CheckAndHandleSpamReports(gctx, id)
			switch {
			case err == nil:
				checked.Add(1)
				if outcome.Hidden {
					hidden.Add(1)
				}
			case errors.Is(err, ErrListingNotFound):
				missing.Add(1)
			default:
				return err
			}
			return nil
		})
	}

	err = g.Wait()
	return RecountSummary{Checked: checked.Load(), Hidden: hidden.Load(), Missing: missing.Load()}, err
}

// HasKeywordStuffing reports whether any whitespace-separated word of the
// title, ignoring case, appears more than three times.
func HasKeywordStuffing(title string) bool {
	counts := make(map[string]int)
	for _, token := range strings.Fields(strings.ToLower(title)) {
		counts[token]++
		if counts[token] > stuffingTokenLimit {
			return true
		}
	}
	return false
}

// DetectKeywordSpamming runs HasKeywordStuffing on the stored title.
func (s *SpamService) DetectKeywordSpamming(ctx context.Context, listingID uint) (bool, error) {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		if isNotFound(err) {
			return false, ErrListingNotFound
		}
		return false, fmt.Errorf("load listing %d: %w", listingID, err)
	}
	return HasKeywordStuffing(listing.Title), nil
}

// DetectDuplicateImages reports whether any media path on the listing is
// also attached to another listing of the same owner. Only literal path
// reuse is detected.
func (s *SpamService) DetectDuplicateImages(ctx context.Context, listingID uint) (bool, error) {
	listing, err := s.listings.GetWithMedia(ctx, listingID)
	if err != nil {
		if isNotFound(err) {
			return false, ErrListingNotFound
		}
		return false, fmt.Errorf("load listing %d: %w", listingID, err)
	}
	return s.hasDuplicateImages(ctx, listing)
}

func (s *SpamService) hasDuplicateImages(ctx context.Context, listing *models.Listing) (bool, error) {
	paths := make([]string, 0, len(listing.Media))
	for _, m := range listing.Media {
		if m.FilePath != "" {
			paths = append(paths, m.FilePath)
		}
	}
	if len(paths) == 0 {
		return false, nil
	}

	n, err := s.listings.CountOwnerMediaMatches(ctx, listing.ID, listing.UserID, paths)
	if err != nil {
		return false, fmt.Errorf("compare media for listing %d: %w", listing.ID, err)
	}
	return n > 0, nil
}

// ReviewSignals gathers both advisory detectors and the stored report
// counters for one listing.
func (s *SpamService) ReviewSignals(ctx context.Context, listingID uint) (*ReviewSignals, error) {
	listing, err := s.listings.GetWithMedia(ctx, listingID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("load listing %d: %w", listingID, err)
	}

	dup, err := s.hasDuplicateImages(ctx, listing)
	if err != nil {
		return nil, err
	}

	return &ReviewSignals{
		ListingID:        listingID,
		KeywordStuffing:  HasKeywordStuffing(listing.Title),
		DuplicateImages:  dup,
		SpamReportCount:  listing.SpamReportCount,
		FraudReportCount: listing.FraudReportCount,
	}, nil
}
