package domain

// Federation groups released data models under a short code so that
// downstream tooling can discover comparable schemas across sites.
// Records and Institutions are informational counts supplied by the
// operator; they are not derived from the member set.
type Federation struct {
	Code         string   `json:"code"`
	Title        string   `json:"title"`
	URL          string   `json:"url"`
	Description  string   `json:"description"`
	Records      int      `json:"records"`
	Institutions int      `json:"institutions"`
	DataModelIDs []string `json:"dataModelIds"`
}

// ValidateMembership checks a requested member-id set against the data
// models actually resolved from storage. It returns nil when every requested
// id exists and is released, otherwise a MembershipError naming exactly
// which ids are missing and which resolve to unreleased models. The check is
// total: it is re-run over the full member set on every federation write.
func ValidateMembership(requested []string, resolved []DataModel) *MembershipError {
	byID := make(map[string]DataModel, len(resolved))
	for _, dm := range resolved {
		byID[dm.ID] = dm
	}

	var missing, unreleased []string
	for _, id := range requested {
		dm, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		if !dm.Released {
			unreleased = append(unreleased, id)
		}
	}

	if len(missing) == 0 && len(unreleased) == 0 {
		return nil
	}
	return &MembershipError{Missing: missing, Unreleased: unreleased}
}
