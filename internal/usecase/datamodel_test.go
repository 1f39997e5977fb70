package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/madgik/datacatalog/internal/domain"
)

type fakeConverter struct {
	validateErr   error
	validated     int
	converted     domain.DataModelDocument
	spreadsheet   []byte
	conversionErr error
}

func (c *fakeConverter) SpreadsheetToDocument(ctx context.Context, spreadsheet []byte, version string, longitudinal bool) (domain.DataModelDocument, error) {
	if c.conversionErr != nil {
		return domain.DataModelDocument{}, c.conversionErr
	}
	doc := c.converted
	doc.Version = version
	doc.Longitudinal = longitudinal
	return doc, nil
}

func (c *fakeConverter) DocumentToSpreadsheet(ctx context.Context, doc domain.DataModelDocument) ([]byte, error) {
	if c.conversionErr != nil {
		return nil, c.conversionErr
	}
	return c.spreadsheet, nil
}

func (c *fakeConverter) ValidateDocument(ctx context.Context, doc domain.DataModelDocument) error {
	c.validated++
	return c.validateErr
}

func TestDataModelCreateStartsUnreleased(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	converter := &fakeConverter{}
	uc := NewDataModelUsecase(store, converter, nil)

	created, err := uc.Create(ctx, expertUser, domain.DataModelDocument{
		Code:      "dementia",
		Version:   "v1",
		Label:     "Dementia",
		Variables: json.RawMessage(`[{"code":"age"}]`),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if created.ID == "" {
		t.Fatal("expected an assigned id")
	}
	if created.Released {
		t.Fatal("new data models must start unreleased")
	}
	if converter.validated != 1 {
		t.Fatalf("expected one validation call, got %d", converter.validated)
	}

	stored, err := uc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Code != "dementia" || stored.Version != "v1" {
		t.Fatalf("unexpected stored model: %+v", stored)
	}
}

func TestDataModelCreateValidationFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	converter := &fakeConverter{validateErr: domain.ValidationError{Detail: "missing variable label"}}
	uc := NewDataModelUsecase(store, converter, nil)

	_, err := uc.Create(ctx, expertUser, domain.DataModelDocument{Code: "bad"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(store.dataModels) != 0 {
		t.Fatalf("validation failure must not persist anything, got %d rows", len(store.dataModels))
	}
}

func TestDataModelMutationsRequireDomainExpert(t *testing.T) {
	ctx := context.Background()
	uc := NewDataModelUsecase(newFakeStore(), &fakeConverter{}, nil)
	nobody := domain.User{Username: "visitor"}

	if _, err := uc.Create(ctx, nobody, domain.DataModelDocument{}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized create, got %v", err)
	}
	if _, err := uc.Update(ctx, nobody, "id", domain.DataModelDocument{}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized update, got %v", err)
	}
	if err := uc.Release(ctx, nobody, "id"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized release, got %v", err)
	}
	if err := uc.Delete(ctx, nobody, "id"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized delete, got %v", err)
	}
}

func TestDataModelReleaseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	uc := NewDataModelUsecase(store, &fakeConverter{}, nil)

	created, err := uc.Create(ctx, expertUser, domain.DataModelDocument{Code: "stroke"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := uc.Release(ctx, expertUser, created.ID); err != nil {
		t.Fatalf("first release failed: %v", err)
	}
	if err := uc.Release(ctx, expertUser, created.ID); err != nil {
		t.Fatalf("re-release must be a no-op success, got %v", err)
	}

	stored, _ := uc.Get(ctx, created.ID)
	if !stored.Released {
		t.Fatal("expected model to stay released")
	}
}

func TestDataModelReleaseUnknownID(t *testing.T) {
	ctx := context.Background()
	uc := NewDataModelUsecase(newFakeStore(), &fakeConverter{}, nil)

	if err := uc.Release(ctx, expertUser, "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDataModelUpdatePreservesReleased(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	uc := NewDataModelUsecase(store, &fakeConverter{}, nil)

	created, err := uc.Create(ctx, expertUser, domain.DataModelDocument{Code: "stroke", Version: "v1"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := uc.Release(ctx, expertUser, created.ID); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	updated, err := uc.Update(ctx, expertUser, created.ID, domain.DataModelDocument{Code: "stroke", Version: "v2"})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !updated.Released {
		t.Fatal("update must preserve the released flag")
	}
	if updated.Version != "v2" {
		t.Fatalf("expected version v2, got %s", updated.Version)
	}
}

func TestDataModelUpdateAllowedWhileReferenced(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	uc := NewDataModelUsecase(store, &fakeConverter{}, nil)
	fedUC := NewFederationUsecase(federationPort{store}, nil)

	created, err := uc.Create(ctx, expertUser, domain.DataModelDocument{Code: "stroke"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := uc.Release(ctx, expertUser, created.ID); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if _, err := fedUC.Create(ctx, adminUser, domain.Federation{Code: "F1", DataModelIDs: []string{created.ID}}); err != nil {
		t.Fatalf("create federation failed: %v", err)
	}

	// Editing a referenced model is permitted, only logged.
	if _, err := uc.Update(ctx, expertUser, created.ID, domain.DataModelDocument{Code: "stroke", Label: "edited"}); err != nil {
		t.Fatalf("update of referenced model must succeed, got %v", err)
	}
}

func TestDataModelImportConvertsSpreadsheet(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	converter := &fakeConverter{
		converted: domain.DataModelDocument{Code: "dementia", Label: "Dementia"},
	}
	uc := NewDataModelUsecase(store, converter, nil)

	created, err := uc.Import(ctx, expertUser, []byte("xlsx-bytes"), "v3", true)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if created.Code != "dementia" || created.Version != "v3" || !created.Longitudinal {
		t.Fatalf("unexpected imported model: %+v", created)
	}
	if created.Released {
		t.Fatal("imported models must start unreleased")
	}
}

func TestDataModelExportUsesConverter(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	converter := &fakeConverter{spreadsheet: []byte("xlsx-bytes")}
	uc := NewDataModelUsecase(store, converter, nil)

	created, err := uc.Create(ctx, expertUser, domain.DataModelDocument{Code: "stroke"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	out, err := uc.Export(ctx, created.ID)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if string(out) != "xlsx-bytes" {
		t.Fatalf("unexpected export payload: %q", out)
	}
}

func TestDataModelListReleasedFilter(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.dataModels["a"] = domain.DataModel{ID: "a", Released: true}
	store.dataModels["b"] = domain.DataModel{ID: "b", Released: false}
	uc := NewDataModelUsecase(store, &fakeConverter{}, nil)

	released := true
	models, err := uc.List(ctx, &released)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(models) != 1 || models[0].ID != "a" {
		t.Fatalf("expected only released model a, got %+v", models)
	}
}
