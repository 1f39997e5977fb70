// Package gateway holds HTTP clients for external collaborators. The data
// quality tool (DQT) converts between spreadsheet files and data-model
// documents and validates documents against the schema rules.
package gateway

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/madgik/datacatalog/internal/domain"
)

const (
	excelToJSONPath  = "/excel-to-json"
	jsonToExcelPath  = "/json-to-excel"
	validateJSONPath = "/validate-json"

	defaultTimeout = 30 * time.Second
)

type DQTGateway struct {
	baseURL  string
	client   *http.Client
	verdicts *cache.Cache
}

func NewDQTGateway(baseURL string, timeout time.Duration) *DQTGateway {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &DQTGateway{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
		verdicts: cache.New(10*time.Minute, 15*time.Minute),
	}
}

// SpreadsheetToDocument uploads the spreadsheet and returns the converted
// document. The converter validates during conversion, so a rejected file
// comes back as a ValidationError.
func (g *DQTGateway) SpreadsheetToDocument(ctx context.Context, spreadsheet []byte, version string, longitudinal bool) (domain.DataModelDocument, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "data-model.xlsx")
	if err != nil {
		return domain.DataModelDocument{}, err
	}
	if _, err := part.Write(spreadsheet); err != nil {
		return domain.DataModelDocument{}, err
	}
	if err := writer.WriteField("version", version); err != nil {
		return domain.DataModelDocument{}, err
	}
	if err := writer.WriteField("longitudinal", strconv.FormatBool(longitudinal)); err != nil {
		return domain.DataModelDocument{}, err
	}
	if err := writer.Close(); err != nil {
		return domain.DataModelDocument{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+excelToJSONPath, &body)
	if err != nil {
		return domain.DataModelDocument{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := g.client.Do(req)
	if err != nil {
		return domain.DataModelDocument{}, domain.UpstreamError{Service: "data quality tool", Cause: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.DataModelDocument{}, domain.UpstreamError{Service: "data quality tool", Cause: err}
	}
	if isRejection(resp.StatusCode) {
		return domain.DataModelDocument{}, domain.ValidationError{Detail: string(payload)}
	}
	if resp.StatusCode != http.StatusOK {
		return domain.DataModelDocument{}, domain.UpstreamError{
			Service: "data quality tool",
			Cause:   fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var doc domain.DataModelDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return domain.DataModelDocument{}, domain.UpstreamError{Service: "data quality tool", Cause: err}
	}

	// The upload form carries version and longitudinal separately; they win
	// over whatever the converter echoes back.
	doc.Version = version
	doc.Longitudinal = longitudinal
	return doc, nil
}

// DocumentToSpreadsheet renders the document as a spreadsheet file.
func (g *DQTGateway) DocumentToSpreadsheet(ctx context.Context, doc domain.DataModelDocument) ([]byte, error) {
	encoded, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+jsonToExcelPath, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, domain.UpstreamError{Service: "data quality tool", Cause: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.UpstreamError{Service: "data quality tool", Cause: err}
	}
	if isRejection(resp.StatusCode) {
		return nil, domain.ValidationError{Detail: string(payload)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domain.UpstreamError{
			Service: "data quality tool",
			Cause:   fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}
	return payload, nil
}

// ValidateDocument submits the document for schema validation. Validation is
// deterministic for a given document, so verdicts are cached by content
// hash; upstream failures are never cached.
func (g *DQTGateway) ValidateDocument(ctx context.Context, doc domain.DataModelDocument) error {
	encoded, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	sum := sha256.Sum256(encoded)
	key := hex.EncodeToString(sum[:])
	if verdict, ok := g.verdicts.Get(key); ok {
		if verdict == nil {
			return nil
		}
		return verdict.(error)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+validateJSONPath, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return domain.UpstreamError{Service: "data quality tool", Cause: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.UpstreamError{Service: "data quality tool", Cause: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		g.verdicts.Set(key, nil, cache.DefaultExpiration)
		return nil
	}
	if isRejection(resp.StatusCode) {
		verr := domain.ValidationError{Detail: string(payload)}
		g.verdicts.Set(key, error(verr), cache.DefaultExpiration)
		return verr
	}
	return domain.UpstreamError{
		Service: "data quality tool",
		Cause:   fmt.Errorf("unexpected status %d", resp.StatusCode),
	}
}

// isRejection reports whether the status is the tool rejecting the document
// itself. Other 4xx (401, 404 from a misconfigured base URL) mean the tool
// is not serving us and are upstream failures, not validation verdicts.
func isRejection(status int) bool {
	return status == http.StatusBadRequest || status == http.StatusUnprocessableEntity
}
