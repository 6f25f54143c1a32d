// Package service implements the reward ledger. The recorder methods
// (OnMinted, OnSold, OnListed) are internal capabilities invoked by the
// registry/asset/marketplace services inside their own transactions; they are
// never routed over HTTP, so an external actor cannot mint points.
package service

import (
	"context"
	"errors"
	"log/slog"

	"museion/internal/events"
	rewardmetrics "museion/internal/rewards/metrics"
	"museion/internal/rewards/models"
	"museion/pkg/domain"
	dErrors "museion/pkg/domain-errors"
	"museion/pkg/platform/sentinel"
	"museion/pkg/requestcontext"
)

// AccountStore is the reward ledger's persistence port. Execute creates
// accounts lazily and applies an infallible mutation under the store's lock.
type AccountStore interface {
	Get(ctx context.Context, addr domain.Address) (*models.Account, error)
	Execute(ctx context.Context, addr domain.Address, mutate func(*models.Account)) (*models.Account, error)
	Ranking(ctx context.Context, limit int) ([]models.RankEntry, error)
}

// RankingIndex is the optional Redis read path for the leaderboard. It is a
// cache: update failures are logged, never propagated, and reads fall back to
// the primary store.
type RankingIndex interface {
	Update(ctx context.Context, addr domain.Address, points int64) error
	Top(ctx context.Context, limit int) ([]models.RankEntry, error)
}

// Service accumulates points and badges from verified ledger events.
type Service struct {
	accounts  AccountStore
	index     RankingIndex
	policy    models.Policy
	catalog   []models.Badge
	publisher events.Publisher
	logger    *slog.Logger
	metrics   *rewardmetrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *rewardmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithRankingIndex(index RankingIndex) Option {
	return func(s *Service) { s.index = index }
}

func WithPolicy(policy models.Policy) Option {
	return func(s *Service) { s.policy = policy }
}

func New(accounts AccountStore, opts ...Option) *Service {
	s := &Service{
		accounts: accounts,
		policy:   models.DefaultPolicy(),
		catalog:  models.Catalog(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnMinted credits the creator for a successful mint. Runs inside the mint
// transaction.
func (s *Service) OnMinted(ctx context.Context, institution domain.InstitutionID, creator domain.Address) error {
	return s.award(ctx, creator, s.policy.MintPoints, "mint", func(a *models.Account) {
		a.Mints++
	})
}

// OnSold credits seller and buyer for a settled sale. Runs inside the
// settlement transaction.
func (s *Service) OnSold(ctx context.Context, seller, buyer domain.Address, price int64) error {
	if err := s.award(ctx, seller, s.policy.SaleSellerPoints, "sale", func(a *models.Account) {
		a.Sales++
	}); err != nil {
		return err
	}
	return s.award(ctx, buyer, s.policy.SaleBuyerPoints, "purchase", func(a *models.Account) {
		a.Purchases++
	})
}

// OnListed credits the seller for creating a listing. Runs inside the listing
// transaction.
func (s *Service) OnListed(ctx context.Context, seller domain.Address) error {
	return s.award(ctx, seller, s.policy.ListPoints, "listing", nil)
}

// award applies the point delta and counter mutation, then checks the badge
// catalog. Each badge lands at most once per address: HasBadge and the append
// run under the same store lock.
func (s *Service) award(ctx context.Context, addr domain.Address, points int64, kind string, count func(*models.Account)) error {
	var newBadges []string
	acct, err := s.accounts.Execute(ctx, addr, func(a *models.Account) {
		a.Points += points
		if count != nil {
			count(a)
		}
		for _, badge := range s.catalog {
			if !a.HasBadge(badge.ID) && badge.Qualifies(a) {
				a.Badges = append(a.Badges, badge.ID)
				newBadges = append(newBadges, badge.ID)
			}
		}
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update reward account")
	}

	if err := s.emit(ctx, events.Event{
		Type:   events.TypePointsAwarded,
		Actor:  addr,
		Amount: points,
		Note:   kind,
	}); err != nil {
		return err
	}
	for _, badge := range newBadges {
		if err := s.emit(ctx, events.Event{
			Type:  events.TypeBadgeAwarded,
			Actor: addr,
			Badge: badge,
		}); err != nil {
			return err
		}
		if s.metrics != nil {
			s.metrics.BadgesAwarded.WithLabelValues(badge).Inc()
		}
		s.logger.InfoContext(ctx, "badge awarded",
			"address", addr,
			"badge", badge,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	if s.metrics != nil {
		s.metrics.PointsAwarded.WithLabelValues(kind).Add(float64(points))
	}

	// Best-effort cache refresh; the primary store stays the source of truth.
	if s.index != nil {
		if err := s.index.Update(ctx, addr, acct.Points); err != nil {
			s.logger.WarnContext(ctx, "ranking index update failed", "address", addr, "error", err)
		}
	}
	return nil
}

// Account returns a participant's reward state. Unseen addresses read as a
// zero account.
func (s *Service) Account(ctx context.Context, addr domain.Address) (*models.Account, error) {
	acct, err := s.accounts.Get(ctx, addr)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return &models.Account{Address: addr}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load reward account")
	}
	return acct, nil
}

// Ranking returns the top limit participants by points descending, ties by
// address ascending. Read-only and restartable.
func (s *Service) Ranking(ctx context.Context, limit int) ([]models.RankEntry, error) {
	if limit <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "limit must be positive")
	}
	const maxLimit = 1000
	if limit > maxLimit {
		limit = maxLimit
	}

	if s.index != nil {
		entries, err := s.index.Top(ctx, limit)
		if err == nil && len(entries) > 0 {
			return entries, nil
		}
		if err != nil {
			s.logger.WarnContext(ctx, "ranking index read failed, falling back", "error", err)
		}
	}

	entries, err := s.accounts.Ranking(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load ranking")
	}
	return entries, nil
}

// Badges returns the badge catalog.
func (s *Service) Badges(ctx context.Context) []models.Badge {
	return s.catalog
}

func (s *Service) emit(ctx context.Context, event events.Event) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.Emit(ctx, event)
}
