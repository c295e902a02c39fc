package docmerge

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// ErrMissingCredentials is returned when no client id or secret can be found.
var ErrMissingCredentials = errors.New("merge service credentials not found")

// Credentials identify the service principal used for the merge service.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// credentialsFile accepts both the legacy embed-API key names and the plain
// OAuth names.
type credentialsFile struct {
	EmbedKey     string `json:"PDF_EMBED_API_KEY"`
	EmbedAccess  string `json:"PDF_EMBED_API_ACCESS"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// LoadCredentials reads credentials from the JSON file at path. With an empty
// path it falls back to ADOBE_CLIENT_ID and ADOBE_CLIENT_SECRET.
func LoadCredentials(path string) (Credentials, error) {
	if path == "" {
		return CredentialsFromEnv()
	}

	slog.Debug("Loading merge service credentials.", "path", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to read credentials file: %w", err)
	}
	var f credentialsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return Credentials{}, fmt.Errorf("failed to parse credentials file %s: %w", path, err)
	}

	creds := Credentials{ClientID: f.EmbedKey, ClientSecret: f.EmbedAccess}
	if creds.ClientID == "" {
		creds.ClientID = f.ClientID
	}
	if creds.ClientSecret == "" {
		creds.ClientSecret = f.ClientSecret
	}
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return Credentials{}, fmt.Errorf("%w in %s", ErrMissingCredentials, path)
	}
	return creds, nil
}

// CredentialsFromEnv reads ADOBE_CLIENT_ID and ADOBE_CLIENT_SECRET.
func CredentialsFromEnv() (Credentials, error) {
	creds := Credentials{
		ClientID:     os.Getenv("ADOBE_CLIENT_ID"),
		ClientSecret: os.Getenv("ADOBE_CLIENT_SECRET"),
	}
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return Credentials{}, fmt.Errorf("%w: set ADOBE_CLIENT_ID and ADOBE_CLIENT_SECRET", ErrMissingCredentials)
	}
	return creds, nil
}
