package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/madgik/datacatalog/internal/domain"
)

var tracer = otel.Tracer("usecase")

type DataModelUsecase struct {
	repo      DataModelRepository
	converter SchemaConverter
	events    EventPublisher
}

func NewDataModelUsecase(repo DataModelRepository, converter SchemaConverter, events EventPublisher) *DataModelUsecase {
	return &DataModelUsecase{
		repo:      repo,
		converter: converter,
		events:    events,
	}
}

// Create validates the document against the external schema rules, assigns
// an id and persists the model. New models always start unreleased.
func (uc *DataModelUsecase) Create(ctx context.Context, user domain.User, doc domain.DataModelDocument) (domain.DataModel, error) {
	ctx, span := tracer.Start(ctx, "DataModel.Usecase.Create")
	defer span.End()

	if !user.Can(domain.CapabilityDomainExpert) {
		return domain.DataModel{}, domain.UnauthorizedError{Capability: domain.CapabilityDomainExpert}
	}

	if err := uc.converter.ValidateDocument(ctx, doc); err != nil {
		return domain.DataModel{}, err
	}

	dm := domain.DataModel{
		ID:           uuid.NewString(),
		Code:         doc.Code,
		Version:      doc.Version,
		Label:        doc.Label,
		Longitudinal: doc.Longitudinal,
		Released:     false,
		Variables:    doc.Variables,
		Groups:       doc.Groups,
	}

	if err := uc.repo.Create(ctx, dm); err != nil {
		return domain.DataModel{}, err
	}
	return dm, nil
}

// Import converts an uploaded spreadsheet into a document via the external
// converter and creates a data model from it. The converter performs its own
// validation during the conversion, so no separate validation call is made.
func (uc *DataModelUsecase) Import(ctx context.Context, user domain.User, spreadsheet []byte, version string, longitudinal bool) (domain.DataModel, error) {
	ctx, span := tracer.Start(ctx, "DataModel.Usecase.Import")
	defer span.End()

	if !user.Can(domain.CapabilityDomainExpert) {
		return domain.DataModel{}, domain.UnauthorizedError{Capability: domain.CapabilityDomainExpert}
	}

	doc, err := uc.converter.SpreadsheetToDocument(ctx, spreadsheet, version, longitudinal)
	if err != nil {
		return domain.DataModel{}, err
	}

	dm := domain.DataModel{
		ID:           uuid.NewString(),
		Code:         doc.Code,
		Version:      doc.Version,
		Label:        doc.Label,
		Longitudinal: doc.Longitudinal,
		Released:     false,
		Variables:    doc.Variables,
		Groups:       doc.Groups,
	}

	if err := uc.repo.Create(ctx, dm); err != nil {
		return domain.DataModel{}, err
	}
	return dm, nil
}

func (uc *DataModelUsecase) Get(ctx context.Context, id string) (domain.DataModel, error) {
	return uc.repo.Get(ctx, id)
}

// List returns all data models, optionally filtered on the released flag.
func (uc *DataModelUsecase) List(ctx context.Context, released *bool) ([]domain.DataModel, error) {
	return uc.repo.List(ctx, released)
}

// Update replaces the content of the model. The release flag is preserved
// from the stored record and can never be set through this path. Updating a
// model that federations already reference is permitted, but logged: such an
// edit changes the schema those federations advertise without re-validating
// their membership.
func (uc *DataModelUsecase) Update(ctx context.Context, user domain.User, id string, doc domain.DataModelDocument) (domain.DataModel, error) {
	ctx, span := tracer.Start(ctx, "DataModel.Usecase.Update")
	defer span.End()

	if !user.Can(domain.CapabilityDomainExpert) {
		return domain.DataModel{}, domain.UnauthorizedError{Capability: domain.CapabilityDomainExpert}
	}

	if err := uc.converter.ValidateDocument(ctx, doc); err != nil {
		return domain.DataModel{}, err
	}

	updated, err := uc.repo.Update(ctx, id, doc)
	if err != nil {
		return domain.DataModel{}, err
	}

	uc.warnIfReferenced(ctx, user, id)
	return updated, nil
}

// UpdateFromSpreadsheet converts the uploaded spreadsheet and applies it as
// an update, with the same semantics as Update.
func (uc *DataModelUsecase) UpdateFromSpreadsheet(ctx context.Context, user domain.User, id string, spreadsheet []byte, version string, longitudinal bool) (domain.DataModel, error) {
	ctx, span := tracer.Start(ctx, "DataModel.Usecase.UpdateFromSpreadsheet")
	defer span.End()

	if !user.Can(domain.CapabilityDomainExpert) {
		return domain.DataModel{}, domain.UnauthorizedError{Capability: domain.CapabilityDomainExpert}
	}

	doc, err := uc.converter.SpreadsheetToDocument(ctx, spreadsheet, version, longitudinal)
	if err != nil {
		return domain.DataModel{}, err
	}

	updated, err := uc.repo.Update(ctx, id, doc)
	if err != nil {
		return domain.DataModel{}, err
	}

	uc.warnIfReferenced(ctx, user, id)
	return updated, nil
}

// Export renders the stored model as a spreadsheet via the external
// converter.
func (uc *DataModelUsecase) Export(ctx context.Context, id string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "DataModel.Usecase.Export")
	defer span.End()

	dm, err := uc.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return uc.converter.DocumentToSpreadsheet(ctx, dm.Document())
}

// Release marks the model as released. The flag is monotonic: releasing an
// already-released model succeeds without touching the row.
func (uc *DataModelUsecase) Release(ctx context.Context, user domain.User, id string) error {
	ctx, span := tracer.Start(ctx, "DataModel.Usecase.Release")
	defer span.End()

	if !user.Can(domain.CapabilityDomainExpert) {
		return domain.UnauthorizedError{Capability: domain.CapabilityDomainExpert}
	}

	if err := uc.repo.Release(ctx, id); err != nil {
		return err
	}

	uc.publish(ctx, domain.CatalogEvent{
		Type:      domain.EventDataModelReleased,
		Subject:   id,
		Actor:     user.Username,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// Delete removes the model. The store rejects the delete with a conflict
// while any federation still references the id; deletion never cascades.
func (uc *DataModelUsecase) Delete(ctx context.Context, user domain.User, id string) error {
	ctx, span := tracer.Start(ctx, "DataModel.Usecase.Delete")
	defer span.End()

	if !user.Can(domain.CapabilityDomainExpert) {
		return domain.UnauthorizedError{Capability: domain.CapabilityDomainExpert}
	}
	return uc.repo.Delete(ctx, id)
}

func (uc *DataModelUsecase) warnIfReferenced(ctx context.Context, user domain.User, id string) {
	codes, err := uc.repo.ReferencingFederations(ctx, id)
	if err != nil {
		slog.Warn("could not determine referencing federations",
			slog.String("dataModel", id),
			slog.String("error", err.Error()),
		)
		return
	}
	if len(codes) > 0 {
		slog.Warn("updated a data model that federations reference",
			slog.String("dataModel", id),
			slog.String("federations", strings.Join(codes, ",")),
			slog.String("user", user.Username),
		)
	}
}

func (uc *DataModelUsecase) publish(ctx context.Context, event domain.CatalogEvent) {
	if uc.events == nil {
		return
	}
	if err := uc.events.Publish(ctx, event); err != nil {
		// The write already committed; a lost notification is not a failure
		// of the request.
		slog.Warn("failed to publish catalog event",
			slog.String("type", event.Type),
			slog.String("subject", event.Subject),
			slog.String("error", err.Error()),
		)
	}
}
