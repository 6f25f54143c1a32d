// Package service implements the registry: the authoritative list of
// verified institutions and the gate in front of every mint.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"museion/internal/events"
	registrymetrics "museion/internal/registry/metrics"
	"museion/internal/registry/models"
	"museion/pkg/domain"
	dErrors "museion/pkg/domain-errors"
	"museion/pkg/platform/secrets"
	"museion/pkg/platform/sentinel"
	"museion/pkg/platform/tx"
	"museion/pkg/requestcontext"
)

// InstitutionStore is the registry's persistence port. Execute holds the
// store's lock (mutex or FOR UPDATE) across validate and mutate.
type InstitutionStore interface {
	Create(ctx context.Context, inst *models.Institution) error
	FindByID(ctx context.Context, id domain.InstitutionID) (*models.Institution, error)
	Execute(ctx context.Context, id domain.InstitutionID,
		validate func(*models.Institution) error,
		mutate func(*models.Institution)) (*models.Institution, error)
	Count(ctx context.Context) (int, error)
}

// Service orchestrates institution lifecycle and the mint authorization gate.
type Service struct {
	institutions InstitutionStore
	runner       tx.Runner
	publisher    events.Publisher
	admin        domain.Address
	logger       *slog.Logger
	metrics      *registrymetrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *registrymetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// New constructs the registry service. admin is the single privileged address
// permitted to verify, deactivate, reactivate, and edit institutions.
func New(institutions InstitutionStore, runner tx.Runner, admin domain.Address, opts ...Option) *Service {
	s := &Service{
		institutions: institutions,
		runner:       runner,
		admin:        admin,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an unverified institution and returns it together with the
// plaintext credential, shown exactly once. The credential authenticates the
// off-ledger backend when it mints on the institution's behalf.
func (s *Service) Register(ctx context.Context, id domain.InstitutionID, name, description string) (*models.Institution, string, error) {
	credential, err := secrets.Generate()
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate institution credential")
	}
	credentialHash, err := secrets.Hash(credential)
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash institution credential")
	}

	var inst *models.Institution
	err = s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		in, err := models.NewInstitution(id, name, description, credentialHash, requestcontext.Now(txCtx))
		if err != nil {
			return err
		}
		if err := s.institutions.Create(txCtx, in); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeAlreadyRegistered, "institution id is already registered")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to register institution")
		}
		if err := s.emit(txCtx, events.Event{
			Type:        events.TypeInstitutionRegistered,
			Institution: in.ID,
		}); err != nil {
			return err
		}
		inst = in
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	s.logger.InfoContext(ctx, "institution registered",
		"institution", inst.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.metrics != nil {
		s.metrics.InstitutionsRegistered.Inc()
	}
	return inst, credential, nil
}

// Verify marks an institution verified. Admin only. Idempotent: a second call
// succeeds without re-emitting the verification event.
func (s *Service) Verify(ctx context.Context, id domain.InstitutionID, caller domain.Address) (*models.Institution, error) {
	if err := s.requireAdmin(caller); err != nil {
		return nil, err
	}

	var (
		inst         *models.Institution
		transitioned bool
	)
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)
		updated, err := s.institutions.Execute(txCtx, id, nil, func(in *models.Institution) {
			transitioned = !in.Verified
			in.ApplyVerification(now)
		})
		if err != nil {
			return s.wrapStoreErr(err)
		}
		if transitioned {
			if err := s.emit(txCtx, events.Event{
				Type:        events.TypeInstitutionVerified,
				Institution: updated.ID,
				Actor:       caller,
			}); err != nil {
				return err
			}
		}
		inst = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	if transitioned {
		s.logger.InfoContext(ctx, "institution verified",
			"institution", inst.ID,
			"request_id", requestcontext.RequestID(ctx),
		)
		if s.metrics != nil {
			s.metrics.InstitutionsVerified.Inc()
		}
	}
	return inst, nil
}

// Deactivate switches the institution off. Admin only. Minted tokens keep
// their provenance; only the mint gate closes.
func (s *Service) Deactivate(ctx context.Context, id domain.InstitutionID, caller domain.Address) (*models.Institution, error) {
	return s.setStatus(ctx, id, caller, events.TypeInstitutionDeactivated,
		(*models.Institution).CanDeactivate,
		(*models.Institution).ApplyDeactivation,
	)
}

// Reactivate switches the institution back on. Admin only.
func (s *Service) Reactivate(ctx context.Context, id domain.InstitutionID, caller domain.Address) (*models.Institution, error) {
	return s.setStatus(ctx, id, caller, events.TypeInstitutionReactivated,
		(*models.Institution).CanReactivate,
		(*models.Institution).ApplyReactivation,
	)
}

func (s *Service) setStatus(
	ctx context.Context,
	id domain.InstitutionID,
	caller domain.Address,
	eventType events.Type,
	validate func(*models.Institution) error,
	apply func(*models.Institution, time.Time),
) (*models.Institution, error) {
	if err := s.requireAdmin(caller); err != nil {
		return nil, err
	}

	var inst *models.Institution
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)
		updated, err := s.institutions.Execute(txCtx, id, validate, func(in *models.Institution) {
			apply(in, now)
		})
		if err != nil {
			return s.wrapStoreErr(err)
		}
		if err := s.emit(txCtx, events.Event{
			Type:        eventType,
			Institution: updated.ID,
			Actor:       caller,
		}); err != nil {
			return err
		}
		inst = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "institution status changed",
		"institution", inst.ID,
		"status", inst.Status,
		"request_id", requestcontext.RequestID(ctx),
	)
	return inst, nil
}

// UpdateInfo replaces the display name and description. Admin only.
func (s *Service) UpdateInfo(ctx context.Context, id domain.InstitutionID, caller domain.Address, name, description string) (*models.Institution, error) {
	if err := s.requireAdmin(caller); err != nil {
		return nil, err
	}

	var inst *models.Institution
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)
		updated, err := s.institutions.Execute(txCtx, id,
			func(in *models.Institution) error {
				cp := *in
				return cp.ApplyInfoUpdate(name, description, now)
			},
			func(in *models.Institution) {
				_ = in.ApplyInfoUpdate(name, description, now)
			},
		)
		if err != nil {
			return s.wrapStoreErr(err)
		}
		inst = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inst, nil
}

// AddCollection increments the institution's collection counter. Internal
// capability: only the asset mint path calls it, inside the mint transaction.
// It is never routed over HTTP.
func (s *Service) AddCollection(ctx context.Context, id domain.InstitutionID) error {
	now := requestcontext.Now(ctx)
	_, err := s.institutions.Execute(ctx, id, nil, func(in *models.Institution) {
		in.ApplyCollectionAdded(now)
	})
	if err != nil {
		return s.wrapStoreErr(err)
	}
	if s.metrics != nil {
		s.metrics.CollectionsAdded.Inc()
	}
	return nil
}

// IsVerified is the mint authorization gate: verified AND active.
func (s *Service) IsVerified(ctx context.Context, id domain.InstitutionID) (bool, error) {
	inst, err := s.institutions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load institution")
	}
	return inst.MayAuthorizeMint(), nil
}

// VerifyCredential checks the institution credential issued at registration.
func (s *Service) VerifyCredential(ctx context.Context, id domain.InstitutionID, credential string) error {
	inst, err := s.institutions.FindByID(ctx, id)
	if err != nil {
		return s.wrapStoreErr(err)
	}
	if err := secrets.Verify(credential, inst.CredentialHash); err != nil {
		return dErrors.New(dErrors.CodeUnauthorized, "invalid institution credential")
	}
	return nil
}

// Get returns one institution.
func (s *Service) Get(ctx context.Context, id domain.InstitutionID) (*models.Institution, error) {
	inst, err := s.institutions.FindByID(ctx, id)
	if err != nil {
		return nil, s.wrapStoreErr(err)
	}
	return inst, nil
}

// Count returns the number of registered institutions, deactivated included.
func (s *Service) Count(ctx context.Context) (int, error) {
	count, err := s.institutions.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count institutions")
	}
	return count, nil
}

func (s *Service) requireAdmin(caller domain.Address) error {
	if caller != s.admin {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the administrative authority")
	}
	return nil
}

func (s *Service) wrapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "institution not found")
	default:
		var de *dErrors.Error
		if errors.As(err, &de) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "registry store failure")
	}
}

func (s *Service) emit(ctx context.Context, event events.Event) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.Emit(ctx, event)
}
