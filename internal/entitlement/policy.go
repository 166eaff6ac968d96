// Package entitlement decides which languages a user may execute code in.
//
// The policy is a pure function over (user, language): no I/O, no clock, no
// configuration reads. It is consulted in two places — before an execution
// record is persisted, and by the /api/languages surface so the client can
// gate editor access before the user ever hits Run.
package entitlement

import "github.com/sakif/codecraft/internal/model"

// freeLanguages is the fixed allow-list available to everyone, including
// anonymous visitors. Everything else requires a Pro subscription.
var freeLanguages = map[string]bool{
	"javascript": true,
	"python":     true,
	"cpp":        true,
}

// proLanguages are the additional runtimes unlocked by a subscription.
// Kept separate from freeLanguages so Languages() can report the full
// catalog with its gating.
var proLanguages = []string{
	"java", "go", "rust", "csharp", "ruby", "swift",
}

// IsFree reports whether the language is in the free allow-list.
func IsFree(language string) bool {
	return freeLanguages[language]
}

// IsPermitted reports whether the given user may execute code in the given
// language.
//
// A nil user covers two distinct situations that the policy deliberately
// treats the same way: an anonymous request, and an authenticated identity
// whose User row hasn't been synced yet. Neither is an error — they're
// simply not entitled to paid languages. Callers that need to distinguish
// them (e.g. to return 401 instead of 403) do so before consulting the
// policy.
func IsPermitted(user *model.User, language string) bool {
	if freeLanguages[language] {
		return true
	}
	return user != nil && user.IsPro
}

// Language describes one entry in the catalog returned to clients.
type Language struct {
	Name string `json:"name"`
	Pro  bool   `json:"pro"` // true when a Pro subscription is required
}

// Languages returns the full catalog, free languages first.
// The slice is freshly allocated on each call; callers may modify it.
func Languages() []Language {
	out := make([]Language, 0, len(freeLanguages)+len(proLanguages))
	// Fixed order rather than map iteration — the catalog is part of the
	// API response and should be stable across calls.
	for _, name := range []string{"javascript", "python", "cpp"} {
		out = append(out, Language{Name: name})
	}
	for _, name := range proLanguages {
		out = append(out, Language{Name: name, Pro: true})
	}
	return out
}
