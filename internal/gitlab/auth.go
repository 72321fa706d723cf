package gitlab

import (
	"net/http"

	"golang.org/x/oauth2"
)

// PrivateTokenHeader is the header GitLab reads personal access tokens from.
const PrivateTokenHeader = "PRIVATE-TOKEN"

// NewTransport wraps base so that every request carries the token both as
// PRIVATE-TOKEN and as an OAuth2 bearer. GitLab setups differ in which one
// they honour, so both are sent.
func NewTransport(token string, base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
		Base:   &privateTokenTransport{token: token, base: base},
	}
}

type privateTokenTransport struct {
	token string
	base  http.RoundTripper
}

func (t *privateTokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set(PrivateTokenHeader, t.token)
	return t.base.RoundTrip(r)
}
