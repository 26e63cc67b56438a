package credentials

// ServiceAccountCredential is the JSON key file issued for a service account.
// Only ClientEmail and PrivateKey take part in token minting; the rest is
// carried for logging and diagnostics. Never persisted by this module.
type ServiceAccountCredential struct {
	Type                    string `json:"type"`
	ProjectID               string `json:"project_id"`
	PrivateKeyID            string `json:"private_key_id"`
	PrivateKey              string `json:"private_key"`
	ClientEmail             string `json:"client_email"`
	ClientID                string `json:"client_id"`
	AuthURI                 string `json:"auth_uri"`
	TokenURI                string `json:"token_uri"`
	AuthProviderX509CertURL string `json:"auth_provider_x509_cert_url"`
	ClientX509CertURL       string `json:"client_x509_cert_url"`
}

// ServiceAccountType is the only credential type accepted
const ServiceAccountType = "service_account"
