package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/madgik/datacatalog/internal/domain"
	"github.com/madgik/datacatalog/internal/infra/database/models"
)

type FederationRepository struct {
	db *gorm.DB
}

func NewFederationRepository(db *gorm.DB) *FederationRepository {
	return &FederationRepository{db: db}
}

// Create inserts the federation and its membership rows in one transaction.
// The member set is validated against data-model rows read (and share-locked)
// inside the same transaction, so a concurrent unrelease cannot invalidate
// the check before the commit.
func (r *FederationRepository) Create(ctx context.Context, fed domain.Federation) (domain.Federation, error) {
	memberIDs := dedupe(fed.DataModelIDs)

	var out domain.Federation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Federation
		err := tx.Where("code = ?", fed.Code).Take(&existing).Error
		if err == nil {
			return domain.ConflictError{
				Resource: "federation",
				Reason:   fmt.Sprintf("code %q already exists", fed.Code),
			}
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		resolved, err := resolveMembers(tx, memberIDs)
		if err != nil {
			return err
		}
		if merr := domain.ValidateMembership(memberIDs, resolved); merr != nil {
			return merr
		}

		row := federationToRow(fed)
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		if err := insertMembers(tx, fed.Code, memberIDs); err != nil {
			return err
		}

		out = federationToDomain(row, memberIDs)
		return nil
	})
	if err != nil {
		return domain.Federation{}, translate(err, "federation")
	}
	return out, nil
}

func (r *FederationRepository) Get(ctx context.Context, code string) (domain.Federation, error) {
	var row models.Federation
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		Take(&row).Error
	if err != nil {
		return domain.Federation{}, translate(err, "federation")
	}

	memberIDs, err := r.memberIDs(ctx, code)
	if err != nil {
		return domain.Federation{}, err
	}
	return federationToDomain(row, memberIDs), nil
}

func (r *FederationRepository) List(ctx context.Context) ([]domain.Federation, error) {
	var rows []models.Federation
	err := r.db.WithContext(ctx).
		Order("code asc").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err, "federation")
	}

	var members []models.FederationMember
	err = r.db.WithContext(ctx).
		Order("federation_code asc, id asc").
		Find(&members).Error
	if err != nil {
		return nil, translate(err, "federation membership")
	}

	byCode := make(map[string][]string, len(rows))
	for _, m := range members {
		byCode[m.FederationCode] = append(byCode[m.FederationCode], m.DataModelID)
	}

	out := make([]domain.Federation, 0, len(rows))
	for _, row := range rows {
		out = append(out, federationToDomain(row, byCode[row.Code]))
	}
	return out, nil
}

// Update replaces the scalar metadata and the full member set. Validation
// failure aborts the transaction, leaving the stored federation untouched.
func (r *FederationRepository) Update(ctx context.Context, code string, fed domain.Federation) (domain.Federation, error) {
	memberIDs := dedupe(fed.DataModelIDs)

	var out domain.Federation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.Federation
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ?", code).
			Take(&row).Error
		if err != nil {
			return err
		}

		resolved, err := resolveMembers(tx, memberIDs)
		if err != nil {
			return err
		}
		if merr := domain.ValidateMembership(memberIDs, resolved); merr != nil {
			return merr
		}

		updates := map[string]any{
			"title":        fed.Title,
			"url":          fed.URL,
			"description":  fed.Description,
			"records":      fed.Records,
			"institutions": fed.Institutions,
		}
		if err := tx.Model(&models.Federation{}).Where("code = ?", code).Updates(updates).Error; err != nil {
			return err
		}

		if err := tx.Delete(&models.FederationMember{}, "federation_code = ?", code).Error; err != nil {
			return err
		}
		if err := insertMembers(tx, code, memberIDs); err != nil {
			return err
		}

		row.Title = fed.Title
		row.URL = fed.URL
		row.Description = fed.Description
		row.Records = fed.Records
		row.Institutions = fed.Institutions
		out = federationToDomain(row, memberIDs)
		return nil
	})
	if err != nil {
		return domain.Federation{}, translate(err, "federation")
	}
	return out, nil
}

func (r *FederationRepository) Delete(ctx context.Context, code string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.FederationMember{}, "federation_code = ?", code).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Federation{}, "code = ?", code)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return translate(err, "federation")
}

func (r *FederationRepository) memberIDs(ctx context.Context, code string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.FederationMember{}).
		Where("federation_code = ?", code).
		Order("id asc").
		Pluck("data_model_id", &ids).Error
	if err != nil {
		return nil, translate(err, "federation membership")
	}
	return ids, nil
}

// resolveMembers loads the requested data-model rows with a share lock so
// they cannot be deleted until this transaction commits. Ids that are not
// well-formed uuids are skipped here and fall out of the membership check
// as missing, instead of erroring on the uuid column comparison.
func resolveMembers(tx *gorm.DB, ids []string) ([]domain.DataModel, error) {
	wellFormed := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			wellFormed = append(wellFormed, id)
		}
	}
	if len(wellFormed) == 0 {
		return nil, nil
	}

	var rows []models.DataModel
	err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
		Where("id IN ?", wellFormed).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.DataModel, 0, len(rows))
	for _, row := range rows {
		out = append(out, dataModelToDomain(row))
	}
	return out, nil
}

func insertMembers(tx *gorm.DB, code string, ids []string) error {
	for _, id := range ids {
		member := models.FederationMember{
			FederationCode: code,
			DataModelID:    id,
		}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func federationToRow(fed domain.Federation) models.Federation {
	return models.Federation{
		Code:         fed.Code,
		Title:        fed.Title,
		URL:          fed.URL,
		Description:  fed.Description,
		Records:      fed.Records,
		Institutions: fed.Institutions,
	}
}

func federationToDomain(row models.Federation, memberIDs []string) domain.Federation {
	if memberIDs == nil {
		memberIDs = []string{}
	}
	return domain.Federation{
		Code:         row.Code,
		Title:        row.Title,
		URL:          row.URL,
		Description:  row.Description,
		Records:      row.Records,
		Institutions: row.Institutions,
		DataModelIDs: memberIDs,
	}
}
