package zaim

import (
	"github.com/dghubble/oauth1"
)

// Endpoint holds the Zaim OAuth 1.0a URLs.
var Endpoint = oauth1.Endpoint{
	RequestTokenURL: "https://api.zaim.net/v2/auth/request",
	AuthorizeURL:    "https://auth.zaim.net/users/auth",
	AccessTokenURL:  "https://api.zaim.net/v2/auth/access",
}

// AuthConfig returns an out-of-band OAuth1 config for obtaining access tokens
// from a terminal: the user opens the authorization URL and pastes back the
// verifier Zaim shows.
func AuthConfig(consumerKey, consumerSecret string) *oauth1.Config {
	return &oauth1.Config{
		ConsumerKey:    consumerKey,
		ConsumerSecret: consumerSecret,
		CallbackURL:    "oob",
		Endpoint:       Endpoint,
	}
}
