package auth

import (
	"net/url"

	"golang.org/x/oauth2/clientcredentials"
)

// Conf holds the client-credentials grant settings of an upstream API.
type Conf struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	AuthURL      string   `json:"auth_url"`
	Scopes       []string `json:"scopes"`
	// Audience is sent as the audience form parameter, which some gateways
	// require to scope the issued token.
	Audience string `json:"audience"`
}

// Enabled reports whether client credentials are configured.
func (c Conf) Enabled() bool {
	return c.ClientID != "" && c.AuthURL != ""
}

func (c *Conf) toOauth2Config() clientcredentials.Config {
	cc := clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.AuthURL,
		Scopes:       c.Scopes,
	}
	if c.Audience != "" {
		cc.EndpointParams = url.Values{"audience": {c.Audience}}
	}
	return cc
}
