// Package resume holds the canonical résumé record and the rules for merging
// partial records extracted from different sources.
package resume

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnknownField is returned when an edit names a field the record does not have.
var ErrUnknownField = errors.New("unknown resume field")

// Field names a résumé field. Names match the keys used by the extraction service.
type Field string

// Scalar fields.
const (
	FieldName     Field = "name"
	FieldEmail    Field = "email"
	FieldPhone    Field = "phone"
	FieldLocation Field = "location"
	FieldLinkedIn Field = "linkedin"
)

// List fields.
const (
	FieldExperience     Field = "experience"
	FieldSkills         Field = "skills"
	FieldProjects       Field = "projects"
	FieldCertifications Field = "certifications"
	FieldAwards         Field = "awards"
	FieldEducation      Field = "education"
	FieldPublications   Field = "publications"
)

var (
	// ScalarFields lists the single-value fields in canonical order.
	ScalarFields = []Field{FieldName, FieldEmail, FieldPhone, FieldLocation, FieldLinkedIn}
	// ListFields lists the multi-value fields in canonical order.
	ListFields = []Field{
		FieldExperience, FieldSkills, FieldProjects, FieldCertifications,
		FieldAwards, FieldEducation, FieldPublications,
	}
)

// IsList reports whether f is a list field.
func (f Field) IsList() bool { return slices.Contains(ListFields, f) }

// Valid reports whether f names a known field.
func (f Field) Valid() bool { return f.IsList() || slices.Contains(ScalarFields, f) }

// Record is a résumé as a set of named fields.
// List fields never hold two entries that are equal ignoring case.
type Record struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`

	Experience     []string `json:"experience,omitempty"`
	Skills         []string `json:"skills,omitempty"`
	Projects       []string `json:"projects,omitempty"`
	Certifications []string `json:"certifications,omitempty"`
	Awards         []string `json:"awards,omitempty"`
	Education      []string `json:"education,omitempty"`
	Publications   []string `json:"publications,omitempty"`
}

func (r *Record) scalar(f Field) *string {
	switch f {
	case FieldName:
		return &r.Name
	case FieldEmail:
		return &r.Email
	case FieldPhone:
		return &r.Phone
	case FieldLocation:
		return &r.Location
	case FieldLinkedIn:
		return &r.LinkedIn
	default:
		return nil
	}
}

func (r *Record) list(f Field) *[]string {
	switch f {
	case FieldExperience:
		return &r.Experience
	case FieldSkills:
		return &r.Skills
	case FieldProjects:
		return &r.Projects
	case FieldCertifications:
		return &r.Certifications
	case FieldAwards:
		return &r.Awards
	case FieldEducation:
		return &r.Education
	case FieldPublications:
		return &r.Publications
	default:
		return nil
	}
}

// Scalar returns the value of a scalar field, or "" for list or unknown fields.
func (r Record) Scalar(f Field) string {
	if p := r.scalar(f); p != nil {
		return *p
	}
	return ""
}

// List returns a copy of a list field, or nil for scalar or unknown fields.
func (r Record) List(f Field) []string {
	if p := r.list(f); p != nil {
		return slices.Clone(*p)
	}
	return nil
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	out := r
	for _, f := range ListFields {
		p := out.list(f)
		*p = slices.Clone(*p)
	}
	return out
}

// IsEmpty reports whether every scalar and list field is empty.
func (r Record) IsEmpty() bool {
	for _, f := range ScalarFields {
		if strings.TrimSpace(r.Scalar(f)) != "" {
			return false
		}
	}
	for _, f := range ListFields {
		if len(normalizeList(*r.list(f))) > 0 {
			return false
		}
	}
	return true
}

// Set applies an explicit user edit. Unlike Merge, it overwrites non-empty
// scalars. A list value is split on line breaks and de-duplicated.
func (r *Record) Set(f Field, value string) error {
	if p := r.scalar(f); p != nil {
		*p = strings.TrimSpace(value)
		return nil
	}
	if p := r.list(f); p != nil {
		*p = SplitLines(value)
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownField, f)
}

// SetList replaces a list field with items, normalized.
func (r *Record) SetList(f Field, items []string) error {
	p := r.list(f)
	if p == nil {
		return fmt.Errorf("%w: %q is not a list field", ErrUnknownField, f)
	}
	*p = normalizeList(items)
	return nil
}

// Lists returns every non-empty field as a list, scalars as one-element
// lists. This is the shape the match service expects.
func (r Record) Lists() map[string][]string {
	out := make(map[string][]string)
	for _, f := range ScalarFields {
		if v := strings.TrimSpace(r.Scalar(f)); v != "" {
			out[string(f)] = []string{v}
		}
	}
	for _, f := range ListFields {
		if v := r.List(f); len(v) > 0 {
			out[string(f)] = v
		}
	}
	return out
}

// Merge combines base with incoming and returns a new record.
//
// A scalar is taken from incoming only when base's value is empty, so the
// first non-empty value wins. List entries from incoming are appended after
// base's entries, skipping any already present ignoring case; raw text blocks
// are split on line breaks first. Fields empty in incoming leave base alone,
// and so do list fields to which incoming adds nothing new; base's list is
// normalized only when entries are appended. Neither argument is modified,
// and Merge(r, r) equals r.
func Merge(base, incoming Record) Record {
	out := base.Clone()

	for _, f := range ScalarFields {
		in := strings.TrimSpace(incoming.Scalar(f))
		if in == "" {
			continue
		}
		if p := out.scalar(f); strings.TrimSpace(*p) == "" {
			*p = in
		}
	}

	for _, f := range ListFields {
		in := normalizeList(*incoming.list(f))
		if len(in) == 0 {
			continue
		}
		p := out.list(f)
		base := normalizeList(*p)
		merged := appendUnique(base, in)
		if len(merged) == len(base) {
			// Nothing new: keep base's entries exactly as they were.
			continue
		}
		*p = merged
	}

	return out
}

// SplitLines splits a raw text block into trimmed, non-empty, de-duplicated lines.
func SplitLines(s string) []string {
	return normalizeList([]string{s})
}

var bulletPrefixes = []string{"•", "●", "▪", "◦"}

func normalizeList(items []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, item := range items {
		for line := range strings.Lines(strings.ReplaceAll(item, "\r", "\n")) {
			line = strings.TrimSpace(line)
			for _, b := range bulletPrefixes {
				line = strings.TrimSpace(strings.TrimPrefix(line, b))
			}
			if line == "" {
				continue
			}
			key := strings.ToLower(line)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, line)
		}
	}
	return out
}

func appendUnique(base, incoming []string) []string {
	seen := make(map[string]bool, len(base))
	for _, s := range base {
		seen[strings.ToLower(s)] = true
	}
	out := slices.Clone(base)
	for _, s := range incoming {
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
