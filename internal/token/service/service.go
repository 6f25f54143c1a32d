// Package service implements the asset context: minting gated by the
// registry, the single authoritative transfer path, and the provenance trail.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"museion/internal/events"
	tokenmetrics "museion/internal/token/metrics"
	"museion/internal/token/models"
	"museion/pkg/domain"
	dErrors "museion/pkg/domain-errors"
	"museion/pkg/platform/sentinel"
	"museion/pkg/platform/tx"
	"museion/pkg/requestcontext"
)

// TokenStore is the asset context's persistence port.
type TokenStore interface {
	Create(ctx context.Context, t *models.Token) error
	FindByID(ctx context.Context, id domain.TokenID) (*models.Token, error)
	Execute(ctx context.Context, id domain.TokenID,
		validate func(*models.Token) error,
		mutate func(*models.Token)) (*models.Token, error)
	Count(ctx context.Context) (uint64, error)
	AppendProvenance(ctx context.Context, entry *models.ProvenanceEntry) error
	ListProvenance(ctx context.Context, id domain.TokenID) ([]models.ProvenanceEntry, error)
}

// RegistryGate is the capability surface the asset context needs from the
// registry. The gate is checked inside this service on every mint; callers
// cannot bypass it by invoking the store directly because the store assigns
// IDs but never checks authorization.
type RegistryGate interface {
	IsVerified(ctx context.Context, id domain.InstitutionID) (bool, error)
	VerifyCredential(ctx context.Context, id domain.InstitutionID, credential string) error
	// AddCollection must be called inside the mint transaction.
	AddCollection(ctx context.Context, id domain.InstitutionID) error
}

// RewardRecorder receives verified mint facts inside the mint transaction.
type RewardRecorder interface {
	OnMinted(ctx context.Context, institution domain.InstitutionID, creator domain.Address) error
}

// Service owns tokens. Transfer and SettlementTransfer are the only holder
// mutators in the system; the marketplace never writes holdership directly.
type Service struct {
	tokens    TokenStore
	registry  RegistryGate
	rewards   RewardRecorder
	runner    tx.Runner
	publisher events.Publisher
	logger    *slog.Logger
	metrics   *tokenmetrics.Metrics
	tracer    trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *tokenmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithRewardRecorder(r RewardRecorder) Option {
	return func(s *Service) { s.rewards = r }
}

func New(tokens TokenStore, registry RegistryGate, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		tokens:   tokens,
		registry: registry,
		runner:   runner,
		logger:   slog.Default(),
		tracer:   otel.Tracer("museion/token"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mint creates a token under a verified institution's authority. The
// credential authenticates the off-ledger backend acting for the institution;
// the verification gate is re-checked inside the transaction so a concurrent
// deactivation cannot slip a mint through.
func (s *Service) Mint(ctx context.Context, institution domain.InstitutionID, credential string, creator domain.Address, metadataURI string, royaltyPct int) (*models.Token, error) {
	ctx, span := s.tracer.Start(ctx, "token.Mint",
		trace.WithAttributes(attribute.String("institution", institution.String())))
	defer span.End()

	if err := s.registry.VerifyCredential(ctx, institution, credential); err != nil {
		return nil, err
	}

	var token *models.Token
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		verified, err := s.registry.IsVerified(txCtx, institution)
		if err != nil {
			return err
		}
		if !verified {
			return dErrors.New(dErrors.CodeNotVerified, "institution is not verified")
		}

		now := requestcontext.Now(txCtx)
		t, err := models.NewToken(institution, creator, metadataURI, royaltyPct, now)
		if err != nil {
			return err
		}
		if err := s.tokens.Create(txCtx, t); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create token")
		}
		if err := s.registry.AddCollection(txCtx, institution); err != nil {
			return err
		}
		if err := s.tokens.AppendProvenance(txCtx, &models.ProvenanceEntry{
			TokenID:    t.ID,
			Kind:       models.ProvenanceMint,
			To:         creator,
			OccurredAt: now,
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record provenance")
		}
		if s.rewards != nil {
			if err := s.rewards.OnMinted(txCtx, institution, creator); err != nil {
				return err
			}
		}
		if err := s.emit(txCtx, events.Event{
			Type:        events.TypeTokenMinted,
			Institution: institution,
			TokenID:     t.ID,
			Actor:       creator,
		}); err != nil {
			return err
		}
		token = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "token minted",
		"token_id", token.ID,
		"institution", institution,
		"creator", creator,
		"royalty_pct", token.RoyaltyPct,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.metrics != nil {
		s.metrics.TokensMinted.Inc()
	}
	span.SetAttributes(attribute.Int64("token_id", int64(token.ID)))
	return token, nil
}

// Transfer moves holdership on the holder's own authority. This is the
// direct-transfer entry point; marketplace settlement goes through
// SettlementTransfer with the proof it validated itself.
func (s *Service) Transfer(ctx context.Context, id domain.TokenID, from, to, caller domain.Address) (*models.Token, error) {
	var token *models.Token
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		t, err := s.transferInTx(txCtx, id, from, to, models.ProvenanceTransfer, 0, func(t *models.Token) error {
			if caller != t.Holder {
				return dErrors.New(dErrors.CodeUnauthorized, "caller is not the current holder")
			}
			return nil
		})
		if err != nil {
			return err
		}
		token = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "token transferred",
		"token_id", id,
		"from", from,
		"to", to,
		"request_id", requestcontext.RequestID(ctx),
	)
	return token, nil
}

// SettlementTransfer moves holdership as the final leg of a marketplace
// settlement. It must run inside the settlement transaction; the marketplace
// has already validated the listing, and holdership is re-validated here so
// the capability cannot be forged by calling with a stale seller.
func (s *Service) SettlementTransfer(ctx context.Context, id domain.TokenID, from, to domain.Address, salePrice int64) (*models.Token, error) {
	return s.transferInTx(ctx, id, from, to, models.ProvenanceSale, salePrice, nil)
}

func (s *Service) transferInTx(
	ctx context.Context,
	id domain.TokenID,
	from, to domain.Address,
	kind models.ProvenanceKind,
	price int64,
	authorize func(*models.Token) error,
) (*models.Token, error) {
	now := requestcontext.Now(ctx)

	token, err := s.tokens.Execute(ctx, id,
		func(t *models.Token) error {
			if authorize != nil {
				if err := authorize(t); err != nil {
					return err
				}
			}
			return t.CanTransfer(from, to)
		},
		func(t *models.Token) {
			t.ApplyTransfer(to, now)
		},
	)
	if err != nil {
		return nil, s.wrapStoreErr(err)
	}

	if err := s.tokens.AppendProvenance(ctx, &models.ProvenanceEntry{
		TokenID:    id,
		Kind:       kind,
		From:       from,
		To:         to,
		Price:      price,
		OccurredAt: now,
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record provenance")
	}
	if err := s.emit(ctx, events.Event{
		Type:    events.TypeTokenTransferred,
		TokenID: id,
		From:    from,
		To:      to,
	}); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.TokensTransferred.WithLabelValues(string(kind)).Inc()
	}
	return token, nil
}

// UpdateMetadata replaces the metadata pointer. Creator only, and only while
// the token has never left the creator.
func (s *Service) UpdateMetadata(ctx context.Context, id domain.TokenID, caller domain.Address, newURI string) (*models.Token, error) {
	var token *models.Token
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)
		t, err := s.tokens.Execute(txCtx, id,
			func(t *models.Token) error {
				if caller != t.Creator {
					return dErrors.New(dErrors.CodeUnauthorized, "only the creator may update metadata")
				}
				if t.MetadataLocked() {
					return dErrors.New(dErrors.CodeMetadataLocked, "metadata is locked after the first transfer")
				}
				return models.ValidateMetadataURI(newURI)
			},
			func(t *models.Token) {
				t.MetadataURI = newURI
				t.UpdatedAt = now
			},
		)
		if err != nil {
			return s.wrapStoreErr(err)
		}
		token = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

// Get returns one token.
func (s *Service) Get(ctx context.Context, id domain.TokenID) (*models.Token, error) {
	t, err := s.tokens.FindByID(ctx, id)
	if err != nil {
		return nil, s.wrapStoreErr(err)
	}
	return t, nil
}

// Provenance returns a token's custody chain in order.
func (s *Service) Provenance(ctx context.Context, id domain.TokenID) ([]models.ProvenanceEntry, error) {
	if _, err := s.tokens.FindByID(ctx, id); err != nil {
		return nil, s.wrapStoreErr(err)
	}
	entries, err := s.tokens.ListProvenance(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load provenance")
	}
	return entries, nil
}

// TotalSupply returns the number of tokens ever minted.
func (s *Service) TotalSupply(ctx context.Context) (uint64, error) {
	count, err := s.tokens.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count tokens")
	}
	return count, nil
}

func (s *Service) wrapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "token not found")
	default:
		var de *dErrors.Error
		if errors.As(err, &de) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "token store failure")
	}
}

func (s *Service) emit(ctx context.Context, event events.Event) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.Emit(ctx, event)
}
