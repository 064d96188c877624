package auth

import "github.com/emberbase/auth/provider"

// Flow selects which ceremony a continuation belongs to.
type Flow string

const (
	// FlowAuthentication is the sign-in ceremony.
	FlowAuthentication Flow = "authentication"
	// FlowRegistration is the sign-up ceremony.
	FlowRegistration Flow = "registration"
)

// Tokens is the triple issued at ceremony completion. RefreshToken is empty
// when the deployment disables refresh.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// NextStep is the engine's answer to every ceremony operation: either the
// ceremony completed (Done with Tokens), or the caller must satisfy Prompt
// (single factor) or one of Choice (alternative factors), carrying State
// into the next request. Validating marks Prompt as the confirmation
// sub-flow of a newly set-up component.
type NextStep struct {
	Done       bool              `json:"done"`
	Prompt     *provider.Prompt  `json:"prompt,omitempty"`
	Choice     []provider.Prompt `json:"choice,omitempty"`
	Validating bool              `json:"validating,omitempty"`
	State      string            `json:"state,omitempty"`
	Tokens     *Tokens           `json:"tokens,omitempty"`
}
