// Package auth models NetCloud Manager API credentials and their sourcing
// from the process environment.
//
// NCM exposes two authentication schemes. The legacy v2 surface requires
// four headers (X-CP-API-ID, X-CP-API-KEY, X-ECM-API-ID, X-ECM-API-KEY),
// all non-empty. The v3 surface requires a single bearer token. A credential
// set may carry either side or both; a partial v2 set is treated as absent.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
)

// Environment variables checked by FromEnv.
const (
	EnvAPIID    = "X_CP_API_ID"
	EnvAPIKey   = "X_CP_API_KEY"
	EnvECMID    = "X_ECM_API_ID"
	EnvECMKey   = "X_ECM_API_KEY"
	EnvToken    = "NCM_API_TOKEN"
	EnvTokenAlt = "TOKEN"
)

// ErrNoCredentials indicates that neither a complete v2 key set nor a v3
// token is configured.
var ErrNoCredentials = errors.New("auth: no NCM API credentials configured")

// Credentials holds the key material for both NCM API surfaces.
type Credentials struct {
	APIID  string // X-CP-API-ID
	APIKey string // X-CP-API-KEY
	ECMID  string // X-ECM-API-ID
	ECMKey string // X-ECM-API-KEY

	// Token is the v3 bearer token.
	Token string
}

// FromEnv builds Credentials from the process environment. Missing variables
// leave the corresponding fields empty; call Validate to check completeness.
// The token is read from NCM_API_TOKEN, falling back to TOKEN.
func FromEnv() Credentials {
	token := os.Getenv(EnvToken)
	if token == "" {
		token = os.Getenv(EnvTokenAlt)
	}
	return Credentials{
		APIID:  os.Getenv(EnvAPIID),
		APIKey: os.Getenv(EnvAPIKey),
		ECMID:  os.Getenv(EnvECMID),
		ECMKey: os.Getenv(EnvECMKey),
		Token:  token,
	}
}

// HasV2 reports whether the complete four-header v2 key set is present.
func (c Credentials) HasV2() bool {
	return c.APIID != "" && c.APIKey != "" && c.ECMID != "" && c.ECMKey != ""
}

// HasV3 reports whether a v3 bearer token is present.
func (c Credentials) HasV3() bool {
	return c.Token != ""
}

// Validate returns ErrNoCredentials when neither surface is usable.
func (c Credentials) Validate() error {
	if !c.HasV2() && !c.HasV3() {
		return ErrNoCredentials
	}
	return nil
}

// Fingerprint returns a short stable digest of the credential set. Shared
// pacer state is namespaced by it so that processes holding different keys
// do not throttle each other.
func (c Credentials) Fingerprint() string {
	h := sha256.New()
	for _, part := range []string{c.APIID, c.APIKey, c.ECMID, c.ECMKey, c.Token} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:12]
}
