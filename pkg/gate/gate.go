// Package gate rejects extraction results that carry no usable content
// before they reach the merge step.
package gate

import (
	"fmt"
	"slices"
	"strings"

	"github.com/RohitMukkala/coding-journey/pkg/resume"
)

// Reason explains a verdict.
type Reason string

// Verdict reasons.
const (
	ReasonOK             Reason = "ok"
	ReasonExtractorEmpty Reason = "extractor_empty"
	ReasonEmpty          Reason = "empty"
	ReasonPlaceholder    Reason = "placeholder"
)

// Verdict is the outcome of a validation check.
type Verdict struct {
	Reason Reason
	Detail string
}

// OK reports whether the input was accepted.
func (v Verdict) OK() bool { return v.Reason == ReasonOK }

// Err returns a *RejectionError for rejected input and nil otherwise.
func (v Verdict) Err() error {
	if v.OK() {
		return nil
	}
	return &RejectionError{Reason: v.Reason, Detail: v.Detail}
}

// RejectionError is returned when extracted content is discarded.
type RejectionError struct {
	Reason Reason
	Detail string
}

func (e *RejectionError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("extraction rejected: %s", e.Reason)
	}
	return fmt.Sprintf("extraction rejected: %s (%s)", e.Reason, e.Detail)
}

// Extraction is a partial record as returned by the extraction service.
// Empty is the service's own signal that nothing could be extracted.
type Extraction struct {
	Record resume.Record
	Empty  bool
}

// Placeholder tokens the upstream extractor and editor use as sample content.
// Name-like fields are matched by substring on the lowercased value.
var placeholderNames = []string{"john doe", "johndoe", "jane doe", "your name"}

// placeholderTexts are editor prompts that sometimes come back as the whole
// extracted job description.
var placeholderTexts = []string{
	"paste the job description here",
	"enter job description",
	"job description",
	"lorem ipsum",
}

// sampleRecord is the template record shown before any real data is loaded.
var sampleRecord = resume.Record{
	Name:       "John Doe",
	Email:      "johndoe@gmail.com",
	LinkedIn:   "https://linkedin.com/in/johndoe",
	Experience: []string{"Software Engineer at XYZ", "Intern at ABC"},
	Skills:     []string{"Python", "Java", "Machine Learning"},
	Projects:   []string{"AI Chatbot", "Resume Enhancer"},
}

// CheckRecord applies the record rules in order: the extractor's empty
// signal, no content at all, then placeholder content.
//
// A record is a placeholder when a name-like field contains a sample token
// and every other field is empty or copied from the sample template. A sample
// name next to any real list content is accepted.
func CheckRecord(x Extraction) Verdict {
	if x.Empty {
		return Verdict{Reason: ReasonExtractorEmpty}
	}
	r := x.Record
	if r.IsEmpty() {
		return Verdict{Reason: ReasonEmpty}
	}
	if token, ok := placeholderName(r); ok && onlySampleContent(r) {
		return Verdict{Reason: ReasonPlaceholder, Detail: token}
	}
	return Verdict{Reason: ReasonOK}
}

// CheckText validates job-description text.
func CheckText(text string) Verdict {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Verdict{Reason: ReasonEmpty}
	}
	lower := strings.ToLower(strings.TrimRight(trimmed, ".!: "))
	if slices.Contains(placeholderTexts, lower) {
		return Verdict{Reason: ReasonPlaceholder, Detail: lower}
	}
	return Verdict{Reason: ReasonOK}
}

func placeholderName(r resume.Record) (string, bool) {
	for _, f := range []resume.Field{resume.FieldName, resume.FieldEmail, resume.FieldLinkedIn} {
		if token, ok := containsPlaceholder(r.Scalar(f)); ok {
			return token, true
		}
	}
	return "", false
}

func containsPlaceholder(v string) (string, bool) {
	v = strings.ToLower(v)
	for _, token := range placeholderNames {
		if strings.Contains(v, token) {
			return token, true
		}
	}
	return "", false
}

// onlySampleContent reports whether every non-empty field of r is either a
// sample template value or a name-like field holding a placeholder token.
// A list counts as sample content only when it is the whole sample list.
func onlySampleContent(r resume.Record) bool {
	for _, f := range resume.ScalarFields {
		v := strings.TrimSpace(r.Scalar(f))
		if v == "" || strings.EqualFold(v, sampleRecord.Scalar(f)) {
			continue
		}
		if _, ok := containsPlaceholder(v); ok && isNameLike(f) {
			continue
		}
		return false
	}
	for _, f := range resume.ListFields {
		items := resume.SplitLines(strings.Join(r.List(f), "\n"))
		if len(items) > 0 && !slices.EqualFunc(items, sampleRecord.List(f), strings.EqualFold) {
			return false
		}
	}
	return true
}

func isNameLike(f resume.Field) bool {
	return f == resume.FieldName || f == resume.FieldEmail || f == resume.FieldLinkedIn
}
