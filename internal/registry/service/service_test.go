package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"museion/internal/events"
	"museion/internal/events/store/outbox"
	"museion/internal/registry/service"
	"museion/internal/registry/store/institution"
	"museion/pkg/domain"
	dErrors "museion/pkg/domain-errors"
	"museion/pkg/platform/tx"
)

const (
	admin    = domain.Address("admin:platform")
	stranger = domain.Address("mallory:collector")
	louvre   = domain.InstitutionID("louvre")
)

func newService(t *testing.T) (*service.Service, *outbox.InMemory) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ob := outbox.NewInMemory()
	svc := service.New(institution.NewInMemory(), tx.NewSerialRunner(), admin,
		service.WithLogger(log),
		service.WithPublisher(events.NewOutboxPublisher(ob, log)),
	)
	return svc, ob
}

func TestRegister_ReturnsCredentialOnce(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	inst, credential, err := svc.Register(ctx, louvre, "Louvre", "national museum")
	require.NoError(t, err)
	assert.NotEmpty(t, credential)
	assert.False(t, inst.Verified, "registration does not verify")

	require.NoError(t, svc.VerifyCredential(ctx, louvre, credential))
	err = svc.VerifyCredential(ctx, louvre, "wrong")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestRegister_DuplicateID(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, louvre, "Louvre", "")
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, louvre, "Impostor", "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyRegistered))
}

func TestVerify_AdminOnlyAndIdempotent(t *testing.T) {
	svc, ob := newService(t)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, louvre, "Louvre", "")
	require.NoError(t, err)

	_, err = svc.Verify(ctx, louvre, stranger)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	inst, err := svc.Verify(ctx, louvre, admin)
	require.NoError(t, err)
	assert.True(t, inst.Verified)

	// Second verification succeeds but emits no second event.
	_, err = svc.Verify(ctx, louvre, admin)
	require.NoError(t, err)

	all, err := ob.ListAfter(ctx, 0, 100)
	require.NoError(t, err)
	verified := 0
	for _, e := range all {
		if e.Type == events.TypeInstitutionVerified {
			verified++
		}
	}
	assert.Equal(t, 1, verified)
}

func TestDeactivate_ClosesMintGate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, louvre, "Louvre", "")
	require.NoError(t, err)
	_, err = svc.Verify(ctx, louvre, admin)
	require.NoError(t, err)

	ok, err := svc.IsVerified(ctx, louvre)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.Deactivate(ctx, louvre, admin)
	require.NoError(t, err)

	// Deactivated institutions keep their verification flag but may not
	// authorize mints.
	ok, err = svc.IsVerified(ctx, louvre)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.Deactivate(ctx, louvre, admin)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict), "already deactivated")

	_, err = svc.Reactivate(ctx, louvre, admin)
	require.NoError(t, err)
	ok, err = svc.IsVerified(ctx, louvre)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsVerified_UnknownInstitution(t *testing.T) {
	svc, _ := newService(t)

	ok, err := svc.IsVerified(context.Background(), "unknown")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateInfo(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, louvre, "Louvre", "old")
	require.NoError(t, err)

	inst, err := svc.UpdateInfo(ctx, louvre, admin, "Musée du Louvre", "updated")
	require.NoError(t, err)
	assert.Equal(t, "Musée du Louvre", inst.Name)
	assert.Equal(t, "updated", inst.Description)
}

func TestCount_IncludesDeactivated(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, louvre, "Louvre", "")
	require.NoError(t, err)
	_, _, err = svc.Register(ctx, "uffizi", "Uffizi", "")
	require.NoError(t, err)
	_, err = svc.Deactivate(ctx, louvre, admin)
	require.NoError(t, err)

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
