package domain

import "encoding/json"

// DataModel is a versioned schema describing the variables and variable
// groups of a dataset type. Variables and Groups are opaque validated
// documents; the catalog stores them verbatim and never decomposes them.
type DataModel struct {
	ID           string          `json:"uuid"`
	Code         string          `json:"code"`
	Version      string          `json:"version"`
	Label        string          `json:"label"`
	Longitudinal bool            `json:"longitudinal"`
	Released     bool            `json:"released"`
	Variables    json.RawMessage `json:"variables,omitempty"`
	Groups       json.RawMessage `json:"groups,omitempty"`
}

// DataModelDocument is the caller-supplied content of a data model:
// everything except the identity and the release flag, which the catalog
// itself controls.
type DataModelDocument struct {
	Code         string          `json:"code"`
	Version      string          `json:"version"`
	Label        string          `json:"label"`
	Longitudinal bool            `json:"longitudinal"`
	Variables    json.RawMessage `json:"variables,omitempty"`
	Groups       json.RawMessage `json:"groups,omitempty"`
}

// Document returns the mutable content of the data model.
func (d DataModel) Document() DataModelDocument {
	return DataModelDocument{
		Code:         d.Code,
		Version:      d.Version,
		Label:        d.Label,
		Longitudinal: d.Longitudinal,
		Variables:    d.Variables,
		Groups:       d.Groups,
	}
}
