package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"tinylink/internal/cache"
	"tinylink/internal/database"
	"tinylink/internal/models"
	"tinylink/internal/shortcode"
)

const (
	// maxAllocationAttempts bounds the total number of insert attempts
	// across all code lengths.
	maxAllocationAttempts = 15
	// attemptsPerLength is how many collisions are tolerated at a given
	// length before the code length is escalated by one.
	attemptsPerLength = 5
)

// reservedAliases are path segments claimed by the application's own routes.
var reservedAliases = map[string]struct{}{
	"api":     {},
	"auth":    {},
	"ping":    {},
	"qrcode":  {},
	"shorten": {},
	"swagger": {},
	"urls":    {},
	"docs":    {},
}

// LinkRepository defines the persistence interface for links at the
// business logic layer.
type LinkRepository interface {
	// Create inserts a new link. It fails with database.ErrShortCodeExists
	// when the short code is already claimed, relying on the store's
	// uniqueness constraint rather than a prior existence check.
	Create(ctx context.Context, p database.CreateLinkParams) (*models.Link, error)

	// GetByShortCode retrieves a link without touching its counters.
	GetByShortCode(ctx context.Context, shortCode string) (*models.Link, error)

	// GetOwned retrieves a link only if it belongs to the given user.
	GetOwned(ctx context.Context, shortCode string, userID int64) (*models.Link, error)

	// RegisterHit atomically increments the click counter and updates the
	// last-accessed timestamp.
	RegisterHit(ctx context.Context, id int64) error

	// ExistsByShortCode is a pre-check optimization only.
	ExistsByShortCode(ctx context.Context, shortCode string) (bool, error)

	// ListByUser returns the user's links, newest first.
	ListByUser(ctx context.Context, userID int64) ([]*models.Link, error)

	// CountActiveByUser counts the user's non-expired links.
	CountActiveByUser(ctx context.Context, userID int64) (int64, error)

	// UpdateOwned edits a link's mutable fields if owned by the user.
	UpdateOwned(ctx context.Context, shortCode string, userID int64, p database.UpdateLinkParams) (*models.Link, error)

	// DeleteOwned removes a link if owned by the user.
	DeleteOwned(ctx context.Context, shortCode string, userID int64) error
}

// ClickRepository records and aggregates click events.
type ClickRepository interface {
	Insert(ctx context.Context, c models.Click) error
	DeviceBreakdown(ctx context.Context, linkID int64) ([]models.CountRow, error)
	TopReferrers(ctx context.Context, linkID int64, limit int) ([]models.CountRow, error)
	DailyStats(ctx context.Context, linkID int64, days int) ([]models.DailyStat, error)
}

// UserProvider supplies account data for quota checks.
type UserProvider interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// LinkCache caches resolved links by short code. All methods tolerate a nil
// underlying cache.
type LinkCache interface {
	Get(ctx context.Context, shortCode string) (*models.Link, error)
	Set(ctx context.Context, link *models.Link) error
	SetNotFound(ctx context.Context, shortCode string) error
	Invalidate(ctx context.Context, shortCode string) error
}

// ShortenParams describes a link creation request.
type ShortenParams struct {
	OriginalURL string
	CustomAlias string
	Title       string
	ExpiresAt   *time.Time
	UserID      *int64
}

// HitInfo carries the request attributes recorded with a click event.
type HitInfo struct {
	UserAgent string
	Referrer  string
	IPAddress string
}

// LinkService implements short link allocation, resolution and statistics.
type LinkService struct {
	repo            LinkRepository
	clicks          ClickRepository
	users           UserProvider
	cache           LinkCache
	logger          *slog.Logger
	baseURL         string
	shortCodeLength int
}

// NewLinkService creates a LinkService. The cache may be backed by a nil
// *cache.LinkCache, in which case every lookup goes to the repository.
func NewLinkService(repo LinkRepository, clicks ClickRepository, users UserProvider,
	linkCache LinkCache, logger *slog.Logger, baseURL string, shortCodeLength int) *LinkService {
	if shortCodeLength < shortcode.DefaultLength {
		shortCodeLength = shortcode.DefaultLength
	}

	return &LinkService{
		repo:            repo,
		clicks:          clicks,
		users:           users,
		cache:           linkCache,
		logger:          logger,
		baseURL:         strings.TrimRight(baseURL, "/"),
		shortCodeLength: shortCodeLength,
	}
}

// ShortURL renders the public short URL for a code.
func (s *LinkService) ShortURL(shortCode string) string {
	return s.baseURL + "/r/" + shortCode
}

// ShortenURL allocates a short code for the given URL and stores the mapping.
// A custom alias bypasses generation but must pass format validation and the
// store-level uniqueness check. Generated codes are retried on collision with
// a bounded attempt budget, escalating the code length as collisions pile up.
func (s *LinkService) ShortenURL(ctx context.Context, p ShortenParams) (*models.Link, error) {
	const op = "service.LinkService.ShortenURL"

	if p.UserID != nil {
		if err := s.checkQuota(ctx, *p.UserID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if p.CustomAlias != "" {
		link, err := s.createWithAlias(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return link, nil
	}

	for attempt := 0; attempt < maxAllocationAttempts; attempt++ {
		length := s.shortCodeLength + attempt/attemptsPerLength

		code, err := shortcode.Generate(length)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate short code: %w", op, err)
		}

		link, err := s.repo.Create(ctx, database.CreateLinkParams{
			ShortCode:   code,
			OriginalURL: p.OriginalURL,
			UserID:      p.UserID,
			Title:       p.Title,
			ExpiresAt:   p.ExpiresAt,
		})
		if err != nil {
			if errors.Is(err, database.ErrShortCodeExists) {
				continue
			}
			return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		return link, nil
	}

	return nil, fmt.Errorf("%s: %w", op, ErrAllocationExhausted)
}

func (s *LinkService) checkQuota(ctx context.Context, userID int64) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}

	count, err := s.repo.CountActiveByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to count links: %w", err)
	}

	if count >= user.LinksLimit {
		return ErrLinkLimitReached
	}

	return nil
}

func (s *LinkService) createWithAlias(ctx context.Context, p ShortenParams) (*models.Link, error) {
	if !shortcode.ValidAlias(p.CustomAlias) {
		return nil, ErrInvalidAlias
	}
	if _, ok := reservedAliases[strings.ToLower(p.CustomAlias)]; ok {
		return nil, ErrReservedAlias
	}

	// Fast path to fail early on an obvious conflict. The insert below is
	// still the only authoritative uniqueness check.
	if exists, err := s.repo.ExistsByShortCode(ctx, p.CustomAlias); err == nil && exists {
		return nil, ErrAliasTaken
	}

	link, err := s.repo.Create(ctx, database.CreateLinkParams{
		ShortCode:   p.CustomAlias,
		OriginalURL: p.OriginalURL,
		UserID:      p.UserID,
		IsAlias:     true,
		Title:       p.Title,
		ExpiresAt:   p.ExpiresAt,
	})
	if err != nil {
		if errors.Is(err, database.ErrShortCodeExists) {
			return nil, ErrAliasTaken
		}
		return nil, fmt.Errorf("failed to create aliased link: %w", err)
	}

	return link, nil
}

// ResolveShortCode resolves a short code to its link and registers the hit.
// The lookup consults the cache first and retries transient repository
// failures with exponential backoff. Hit registration is best-effort: a
// failure is logged and the resolved link is still returned, because the
// redirect is the primary contract and click tracking is not.
func (s *LinkService) ResolveShortCode(ctx context.Context, shortCode string, hit HitInfo) (*models.Link, error) {
	const op = "service.LinkService.ResolveShortCode"

	link, err := s.lookup(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if link.Expired(time.Now()) {
		return nil, fmt.Errorf("%s: %w", op, ErrLinkExpired)
	}

	s.registerHit(ctx, link, hit)

	return link, nil
}

func (s *LinkService) lookup(ctx context.Context, shortCode string) (*models.Link, error) {
	cached, err := s.cache.Get(ctx, shortCode)
	switch {
	case err == nil:
		return cached, nil
	case errors.Is(err, cache.ErrNegativeEntry):
		return nil, database.ErrLinkNotFound
	case !errors.Is(err, cache.ErrCacheMiss):
		s.logger.Warn("link cache get failed", slog.String("short_code", shortCode), slog.Any("err", err))
	}

	var link *models.Link

	backoff := retry.WithMaxRetries(3, retry.NewExponential(50*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		link, err = s.repo.GetByShortCode(ctx, shortCode)
		if err != nil && !errors.Is(err, database.ErrLinkNotFound) {
			// Transient store failures are retried; a miss is final.
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		if errors.Is(err, database.ErrLinkNotFound) {
			if cacheErr := s.cache.SetNotFound(ctx, shortCode); cacheErr != nil {
				s.logger.Warn("link cache set failed", slog.Any("err", cacheErr))
			}
		}
		return nil, fmt.Errorf("failed to resolve short code: %w", err)
	}

	if cacheErr := s.cache.Set(ctx, link); cacheErr != nil {
		s.logger.Warn("link cache set failed", slog.Any("err", cacheErr))
	}

	return link, nil
}

func (s *LinkService) registerHit(ctx context.Context, link *models.Link, hit HitInfo) {
	if err := s.repo.RegisterHit(ctx, link.ID); err != nil {
		s.logger.Error("failed to register hit",
			slog.String("short_code", link.ShortCode), slog.Any("err", err))
		return
	}
	link.ClickCount++

	err := s.clicks.Insert(ctx, models.Click{
		LinkID:     link.ID,
		UserAgent:  hit.UserAgent,
		Referrer:   hit.Referrer,
		IPAddress:  hit.IPAddress,
		DeviceType: classifyDevice(hit.UserAgent),
	})
	if err != nil {
		s.logger.Error("failed to record click",
			slog.String("short_code", link.ShortCode), slog.Any("err", err))
	}
}

// GetLinkStats retrieves a link's statistics without counting a hit. Only the
// owner may read them.
func (s *LinkService) GetLinkStats(ctx context.Context, shortCode string, userID int64) (*models.Link, error) {
	const op = "service.LinkService.GetLinkStats"

	link, err := s.repo.GetOwned(ctx, shortCode, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get link stats: %w", op, err)
	}

	return link, nil
}

// GetLinkAnalytics aggregates the click history of an owned link.
func (s *LinkService) GetLinkAnalytics(ctx context.Context, shortCode string, userID int64) (*models.LinkAnalytics, error) {
	const op = "service.LinkService.GetLinkAnalytics"

	link, err := s.repo.GetOwned(ctx, shortCode, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get link: %w", op, err)
	}

	byDevice, err := s.clicks.DeviceBreakdown(ctx, link.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get device breakdown: %w", op, err)
	}

	topReferrers, err := s.clicks.TopReferrers(ctx, link.ID, 10)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get top referrers: %w", op, err)
	}

	daily, err := s.clicks.DailyStats(ctx, link.ID, 30)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get daily stats: %w", op, err)
	}

	return &models.LinkAnalytics{
		TotalClicks:  link.ClickCount,
		CreatedAt:    link.CreatedAt,
		LastAccessed: link.LastAccessed,
		ByDevice:     byDevice,
		TopReferrers: topReferrers,
		Daily:        daily,
	}, nil
}

// GetOwnedLink returns the absolute short URL of an owned link. It exists so
// that the QR renderer can verify ownership without reading counters.
func (s *LinkService) GetOwnedLink(ctx context.Context, shortCode string, userID int64) (string, error) {
	const op = "service.LinkService.GetOwnedLink"

	link, err := s.repo.GetOwned(ctx, shortCode, userID)
	if err != nil {
		return "", fmt.Errorf("%s: failed to get link: %w", op, err)
	}

	return s.ShortURL(link.ShortCode), nil
}

// ListUserLinks returns all links owned by the user, newest first.
func (s *LinkService) ListUserLinks(ctx context.Context, userID int64) ([]*models.Link, error) {
	const op = "service.LinkService.ListUserLinks"

	links, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list links: %w", op, err)
	}

	return links, nil
}

// ModifyLink edits an owned link and drops its cache entry.
func (s *LinkService) ModifyLink(ctx context.Context, shortCode string, userID int64, p database.UpdateLinkParams) (*models.Link, error) {
	const op = "service.LinkService.ModifyLink"

	link, err := s.repo.UpdateOwned(ctx, shortCode, userID, p)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to modify link: %w", op, err)
	}

	if cacheErr := s.cache.Invalidate(ctx, shortCode); cacheErr != nil {
		s.logger.Warn("link cache invalidate failed", slog.Any("err", cacheErr))
	}

	return link, nil
}

// DeleteLink removes an owned link and drops its cache entry.
func (s *LinkService) DeleteLink(ctx context.Context, shortCode string, userID int64) error {
	const op = "service.LinkService.DeleteLink"

	if err := s.repo.DeleteOwned(ctx, shortCode, userID); err != nil {
		return fmt.Errorf("%s: failed to delete link: %w", op, err)
	}

	if cacheErr := s.cache.Invalidate(ctx, shortCode); cacheErr != nil {
		s.logger.Warn("link cache invalidate failed", slog.Any("err", cacheErr))
	}

	return nil
}
