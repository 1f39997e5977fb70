package usecase

import (
	"context"

	"github.com/madgik/datacatalog/internal/domain"
)

// DataModelRepository defines storage operations for data models. Mutations
// run validate-then-write inside a single transaction so concurrent writes
// to the same row are serialized.
type DataModelRepository interface {
	Create(ctx context.Context, dm domain.DataModel) error
	Get(ctx context.Context, id string) (domain.DataModel, error)
	List(ctx context.Context, released *bool) ([]domain.DataModel, error)
	Update(ctx context.Context, id string, doc domain.DataModelDocument) (domain.DataModel, error)
	Release(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	ReferencingFederations(ctx context.Context, id string) ([]string, error)
}

// FederationRepository defines storage operations for federations. Create
// and Update re-validate the full member set against committed data-model
// state within their own transaction boundary.
type FederationRepository interface {
	Create(ctx context.Context, fed domain.Federation) (domain.Federation, error)
	Get(ctx context.Context, code string) (domain.Federation, error)
	List(ctx context.Context) ([]domain.Federation, error)
	Update(ctx context.Context, code string, fed domain.Federation) (domain.Federation, error)
	Delete(ctx context.Context, code string) error
}

// SchemaConverter encapsulates the external data quality tool that converts
// between spreadsheet files and data-model documents and validates documents
// against the schema rules.
type SchemaConverter interface {
	SpreadsheetToDocument(ctx context.Context, spreadsheet []byte, version string, longitudinal bool) (domain.DataModelDocument, error)
	DocumentToSpreadsheet(ctx context.Context, doc domain.DataModelDocument) ([]byte, error)
	ValidateDocument(ctx context.Context, doc domain.DataModelDocument) error
}

// EventPublisher notifies downstream consumers of committed catalog changes.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.CatalogEvent) error
}
