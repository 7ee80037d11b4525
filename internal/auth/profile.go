package auth

// Provider identifiers. The set is compiled in; the registry rejects
// anything else before a network call is made.
const (
	ProviderMicrosoft = "microsoft"
	ProviderGitHub    = "github"
)

// Profile is a normalized external identity returned by an OAuth provider.
// It contains facts only, no decisions: account resolution and session
// creation happen elsewhere.
type Profile struct {
	Provider   string // e.g. "microsoft", "github"
	ProviderID string // provider-scoped stable user identifier
	Username   string // derived per the provider's fallback policy
	Email      string // empty when the provider exposes none
	AvatarURL  string // empty for providers without one
}
