package journey

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/RohitMukkala/coding-journey/pkg/codechef"
	"github.com/RohitMukkala/coding-journey/pkg/codeforces"
	"github.com/RohitMukkala/coding-journey/pkg/github"
	"github.com/RohitMukkala/coding-journey/pkg/leetcode"
	"github.com/RohitMukkala/coding-journey/pkg/profile"
)

// Handles are the user's account names on each platform. An empty handle
// means the platform is not connected. A profile URL may stand in for a handle.
type Handles struct {
	GitHub     string `json:"github,omitempty"     validate:"omitempty,max=39,github_handle"`
	LeetCode   string `json:"leetcode,omitempty"   validate:"omitempty,max=30,handle"`
	Codeforces string `json:"codeforces,omitempty" validate:"omitempty,min=3,max=24,handle"`
	CodeChef   string `json:"codechef,omitempty"   validate:"omitempty,max=30,handle"`
}

var (
	handlePattern       = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	githubHandlePattern = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9]|-[A-Za-z0-9])*$`)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("handle", func(fl validator.FieldLevel) bool { //nolint:errcheck // static tag name
		return handlePattern.MatchString(fl.Field().String())
	})
	v.RegisterValidation("github_handle", func(fl validator.FieldLevel) bool { //nolint:errcheck // static tag name
		return githubHandlePattern.MatchString(fl.Field().String())
	})
	return v
}

// Normalize trims whitespace and a leading "@" from every handle and
// replaces a profile URL with the handle it names. Anything else is left
// for validation to reject.
func (h Handles) Normalize() Handles {
	clean := func(s string, fromURL func(string) string) string {
		s = strings.TrimPrefix(strings.TrimSpace(s), "@")
		if handle := fromURL(s); handle != "" {
			return handle
		}
		return s
	}
	return Handles{
		GitHub:     clean(h.GitHub, github.HandleFromURL),
		LeetCode:   clean(h.LeetCode, leetcode.HandleFromURL),
		Codeforces: clean(h.Codeforces, codeforces.HandleFromURL),
		CodeChef:   clean(h.CodeChef, codechef.HandleFromURL),
	}
}

// For returns the handle for kind.
func (h Handles) For(kind profile.Kind) string {
	switch kind {
	case profile.KindGitHub:
		return h.GitHub
	case profile.KindLeetCode:
		return h.LeetCode
	case profile.KindCodeforces:
		return h.Codeforces
	case profile.KindCodeChef:
		return h.CodeChef
	default:
		return ""
	}
}

// HandleError reports handles that failed validation.
type HandleError struct {
	Fields map[string]string
}

func (e *HandleError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, k := range []string{"GitHub", "LeetCode", "Codeforces", "CodeChef"} {
		if rule, ok := e.Fields[k]; ok {
			parts = append(parts, fmt.Sprintf("%s: %s", k, rule))
		}
	}
	return "invalid handles: " + strings.Join(parts, ", ")
}

func validateHandles(v *validator.Validate, h Handles) error {
	err := v.Struct(h)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate handles: %w", err)
	}
	he := &HandleError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		he.Fields[fe.Field()] = fe.Tag()
	}
	return he
}
