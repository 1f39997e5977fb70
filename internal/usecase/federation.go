package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/madgik/datacatalog/internal/domain"
)

type FederationUsecase struct {
	repo   FederationRepository
	events EventPublisher
}

func NewFederationUsecase(repo FederationRepository, events EventPublisher) *FederationUsecase {
	return &FederationUsecase{
		repo:   repo,
		events: events,
	}
}

// Create stores a new federation. The store rejects a duplicate code and
// re-validates the full member set against committed data-model state; on
// any failure nothing is written.
func (uc *FederationUsecase) Create(ctx context.Context, user domain.User, fed domain.Federation) (domain.Federation, error) {
	ctx, span := tracer.Start(ctx, "Federation.Usecase.Create")
	defer span.End()

	if !user.Can(domain.CapabilityAdmin) {
		return domain.Federation{}, domain.UnauthorizedError{Capability: domain.CapabilityAdmin}
	}

	created, err := uc.repo.Create(ctx, fed)
	if err != nil {
		return domain.Federation{}, err
	}

	uc.publish(ctx, domain.CatalogEvent{
		Type:      domain.EventFederationCreated,
		Subject:   created.Code,
		Actor:     user.Username,
		Timestamp: time.Now().UTC(),
	})
	return created, nil
}

func (uc *FederationUsecase) Get(ctx context.Context, code string) (domain.Federation, error) {
	return uc.repo.Get(ctx, code)
}

func (uc *FederationUsecase) List(ctx context.Context) ([]domain.Federation, error) {
	return uc.repo.List(ctx)
}

// Update replaces the federation's metadata and its full member set. The
// member set is re-validated in its entirety; on validation failure the
// stored federation is left untouched.
func (uc *FederationUsecase) Update(ctx context.Context, user domain.User, code string, fed domain.Federation) (domain.Federation, error) {
	ctx, span := tracer.Start(ctx, "Federation.Usecase.Update")
	defer span.End()

	if !user.Can(domain.CapabilityAdmin) {
		return domain.Federation{}, domain.UnauthorizedError{Capability: domain.CapabilityAdmin}
	}

	updated, err := uc.repo.Update(ctx, code, fed)
	if err != nil {
		return domain.Federation{}, err
	}

	uc.publish(ctx, domain.CatalogEvent{
		Type:      domain.EventFederationUpdated,
		Subject:   code,
		Actor:     user.Username,
		Timestamp: time.Now().UTC(),
	})
	return updated, nil
}

// Delete removes the federation only; member data models are untouched.
func (uc *FederationUsecase) Delete(ctx context.Context, user domain.User, code string) error {
	ctx, span := tracer.Start(ctx, "Federation.Usecase.Delete")
	defer span.End()

	if !user.Can(domain.CapabilityAdmin) {
		return domain.UnauthorizedError{Capability: domain.CapabilityAdmin}
	}

	if err := uc.repo.Delete(ctx, code); err != nil {
		return err
	}

	uc.publish(ctx, domain.CatalogEvent{
		Type:      domain.EventFederationDeleted,
		Subject:   code,
		Actor:     user.Username,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

func (uc *FederationUsecase) publish(ctx context.Context, event domain.CatalogEvent) {
	if uc.events == nil {
		return
	}
	if err := uc.events.Publish(ctx, event); err != nil {
		slog.Warn("failed to publish catalog event",
			slog.String("type", event.Type),
			slog.String("subject", event.Subject),
			slog.String("error", err.Error()),
		)
	}
}
