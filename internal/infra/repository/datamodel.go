package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/madgik/datacatalog/internal/domain"
	"github.com/madgik/datacatalog/internal/infra/database/models"
)

type DataModelRepository struct {
	db *gorm.DB
}

func NewDataModelRepository(db *gorm.DB) *DataModelRepository {
	return &DataModelRepository{db: db}
}

func (r *DataModelRepository) Create(ctx context.Context, dm domain.DataModel) error {
	row := dataModelToRow(dm)
	err := r.db.WithContext(ctx).Create(&row).Error
	return translate(err, "data model")
}

func (r *DataModelRepository) Get(ctx context.Context, id string) (domain.DataModel, error) {
	var row models.DataModel
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Take(&row).Error
	if err != nil {
		return domain.DataModel{}, translate(err, "data model")
	}
	return dataModelToDomain(row), nil
}

func (r *DataModelRepository) List(ctx context.Context, released *bool) ([]domain.DataModel, error) {
	query := r.db.WithContext(ctx).Order("c_date asc, id asc")
	if released != nil {
		query = query.Where("released = ?", *released)
	}

	var rows []models.DataModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, translate(err, "data model")
	}

	out := make([]domain.DataModel, 0, len(rows))
	for _, row := range rows {
		out = append(out, dataModelToDomain(row))
	}
	return out, nil
}

// Update replaces the content columns of the row under a row lock. The
// released column is deliberately left out of the write set so no update
// can flip it.
func (r *DataModelRepository) Update(ctx context.Context, id string, doc domain.DataModelDocument) (domain.DataModel, error) {
	var out domain.DataModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.DataModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			Take(&row).Error
		if err != nil {
			return err
		}

		updates := map[string]any{
			"code":         doc.Code,
			"version":      doc.Version,
			"label":        doc.Label,
			"longitudinal": doc.Longitudinal,
			"variables":    string(doc.Variables),
			"groups":       string(doc.Groups),
		}
		if err := tx.Model(&models.DataModel{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}

		row.Code = doc.Code
		row.Version = doc.Version
		row.Label = doc.Label
		row.Longitudinal = doc.Longitudinal
		row.Variables = string(doc.Variables)
		row.Groups = string(doc.Groups)
		out = dataModelToDomain(row)
		return nil
	})
	if err != nil {
		return domain.DataModel{}, translate(err, "data model")
	}
	return out, nil
}

// Release sets the released flag. Re-releasing is a no-op success: the flag
// is monotonic, not a one-shot trigger.
func (r *DataModelRepository) Release(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.DataModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			Take(&row).Error
		if err != nil {
			return err
		}
		if row.Released {
			return nil
		}
		return tx.Model(&models.DataModel{}).
			Where("id = ?", id).
			Update("released", true).Error
	})
	return translate(err, "data model")
}

// Delete removes the row unless a federation still references it. The
// reference check and the delete run in one transaction with the row locked,
// so a concurrent federation write cannot slip between them.
func (r *DataModelRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.DataModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			Take(&row).Error
		if err != nil {
			return err
		}

		var codes []string
		err = tx.Model(&models.FederationMember{}).
			Where("data_model_id = ?", id).
			Distinct().
			Order("federation_code asc").
			Pluck("federation_code", &codes).Error
		if err != nil {
			return err
		}
		if len(codes) > 0 {
			return domain.ConflictError{
				Resource: "data model",
				Reason:   fmt.Sprintf("referenced by federations: %s", strings.Join(codes, ", ")),
			}
		}

		return tx.Delete(&models.DataModel{}, "id = ?", id).Error
	})
	return translate(err, "data model")
}

func (r *DataModelRepository) ReferencingFederations(ctx context.Context, id string) ([]string, error) {
	var codes []string
	err := r.db.WithContext(ctx).
		Model(&models.FederationMember{}).
		Where("data_model_id = ?", id).
		Distinct().
		Order("federation_code asc").
		Pluck("federation_code", &codes).Error
	if err != nil {
		return nil, translate(err, "federation membership")
	}
	return codes, nil
}

func dataModelToRow(dm domain.DataModel) models.DataModel {
	return models.DataModel{
		ID:           dm.ID,
		Code:         dm.Code,
		Version:      dm.Version,
		Label:        dm.Label,
		Longitudinal: dm.Longitudinal,
		Released:     dm.Released,
		Variables:    string(dm.Variables),
		Groups:       string(dm.Groups),
	}
}

func dataModelToDomain(row models.DataModel) domain.DataModel {
	return domain.DataModel{
		ID:           row.ID,
		Code:         row.Code,
		Version:      row.Version,
		Label:        row.Label,
		Longitudinal: row.Longitudinal,
		Released:     row.Released,
		Variables:    json.RawMessage(row.Variables),
		Groups:       json.RawMessage(row.Groups),
	}
}

// translate maps store failures onto the domain taxonomy. Timeouts and
// cancellations surface distinctly because validate-then-write is not safe
// to retry blindly.
func translate(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrUpstream):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.NotFoundError{Resource: resource}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.ConflictError{Resource: resource, Reason: "already exists"}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return domain.UpstreamError{Service: "database", Cause: err}
	default:
		return pkgerrors.Wrapf(err, "%s store", resource)
	}
}
