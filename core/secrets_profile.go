package core

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type clientSecretsProfile struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	RedirectURI  string   `json:"redirect_uri"`
	RedirectURIs []string `json:"redirect_uris"`
	AuthURI      string   `json:"auth_uri"`
	TokenURI     string   `json:"token_uri"`
	VisitURI     string   `json:"visit_uri"`
}

type clientSecretsFile struct {
	clientSecretsProfile
	Web       *clientSecretsProfile `json:"web"`
	Installed *clientSecretsProfile `json:"installed"`
}

// ClientSecretsFromProfile builds ClientSecrets from a clientsecrets
// JSON file, the format the provider's merchant tools export. Both the
// flat shape and the oauth2 clientsecrets shape (fields nested under
// "web" or "installed") are accepted. Sandbox behaves exactly as in
// NewClientSecrets: it forces the sandbox endpoints regardless of what
// the file carries.
func ClientSecretsFromProfile(path string, sandbox bool) (ClientSecrets, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return ClientSecrets{}, NewConfigurationError("secrets profile path is required", nil)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return ClientSecrets{}, NewConfigurationError(fmt.Sprintf("read secrets profile %q", path), err)
	}

	var file clientSecretsFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return ClientSecrets{}, NewConfigurationError(fmt.Sprintf("parse secrets profile %q", path), err)
	}

	info := &file.clientSecretsProfile
	if file.Web != nil {
		info = file.Web
	} else if file.Installed != nil {
		info = file.Installed
	}

	redirectURI := strings.TrimSpace(info.RedirectURI)
	if redirectURI == "" && len(info.RedirectURIs) > 0 {
		redirectURI = strings.TrimSpace(info.RedirectURIs[0])
	}

	return NewClientSecrets(ClientSecretsConfig{
		ClientID:     info.ClientID,
		ClientSecret: info.ClientSecret,
		RedirectURI:  redirectURI,
		AuthURI:      info.AuthURI,
		TokenURI:     info.TokenURI,
		VisitURI:     info.VisitURI,
		Sandbox:      sandbox,
	})
}
