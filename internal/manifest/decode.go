package manifest

import (
	"encoding/json"
	"fmt"
)

// IssueReason classifies a structural problem found while decoding.
type IssueReason string

const (
	IssueUnknownField IssueReason = "unknown_field"
	IssueMissingField IssueReason = "missing_field"
	IssueMalformed    IssueReason = "malformed"
)

// Issue is one structural defect in a raw manifest document.
type Issue struct {
	Field  string
	Reason IssueReason
	Detail string
}

var manifestFields = []string{"hostname", "vendor", "backup_list"}
var entryFields = []string{"backup_file", "date", "type"}

// DecodeStrict decodes a raw manifest document enforcing the closed
// schema: exactly the known fields at both the manifest and entry
// level, all of them required. The returned manifest is nil unless the
// document decoded cleanly.
func DecodeStrict(raw []byte) (*Manifest, []Issue) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, []Issue{{Reason: IssueMalformed, Detail: err.Error()}}
	}

	var issues []Issue
	issues = append(issues, checkFields(top, manifestFields, "")...)

	var m Manifest
	if hostRaw, ok := top["hostname"]; ok {
		if err := json.Unmarshal(hostRaw, &m.Hostname); err != nil {
			issues = append(issues, Issue{Field: "hostname", Reason: IssueMalformed, Detail: "must be a string"})
		}
	}
	if vendorRaw, ok := top["vendor"]; ok {
		if err := json.Unmarshal(vendorRaw, &m.Vendor); err != nil {
			issues = append(issues, Issue{Field: "vendor", Reason: IssueMalformed, Detail: "must be a string"})
		}
	}

	if listRaw, ok := top["backup_list"]; ok {
		var rawEntries []json.RawMessage
		if err := json.Unmarshal(listRaw, &rawEntries); err != nil {
			issues = append(issues, Issue{Field: "backup_list", Reason: IssueMalformed, Detail: "must be an array"})
		}
		for i, entryRaw := range rawEntries {
			entry, entryIssues := decodeEntry(entryRaw, fmt.Sprintf("backup_list[%d]", i))
			issues = append(issues, entryIssues...)
			m.Entries = append(m.Entries, entry)
		}
	}

	if len(issues) > 0 {
		return nil, issues
	}
	return &m, nil
}

func decodeEntry(raw json.RawMessage, fieldPath string) (Entry, []Issue) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Entry{}, []Issue{{Field: fieldPath, Reason: IssueMalformed, Detail: "must be an object"}}
	}

	issues := checkFields(obj, entryFields, fieldPath+".")

	var entry Entry
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"backup_file", &entry.Path},
		{"date", &entry.Date},
		{"type", &entry.Kind},
	} {
		fieldRaw, ok := obj[f.name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(fieldRaw, f.dst); err != nil {
			issues = append(issues, Issue{Field: fieldPath + "." + f.name, Reason: IssueMalformed, Detail: "must be a string"})
		}
	}
	return entry, issues
}

// checkFields applies the field allowlist: every known field must be
// present and no other field may appear.
func checkFields(obj map[string]json.RawMessage, known []string, prefix string) []Issue {
	var issues []Issue
	for _, field := range known {
		if _, ok := obj[field]; !ok {
			issues = append(issues, Issue{Field: prefix + field, Reason: IssueMissingField, Detail: "required field is missing"})
		}
	}
	for field := range obj {
		allowed := false
		for _, k := range known {
			if field == k {
				allowed = true
				break
			}
		}
		if !allowed {
			issues = append(issues, Issue{Field: prefix + field, Reason: IssueUnknownField, Detail: "field is not permitted"})
		}
	}
	return issues
}
