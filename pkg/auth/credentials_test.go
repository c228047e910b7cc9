package auth

import (
	"errors"
	"testing"
)

func TestHasV2(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
		want  bool
	}{
		{
			name:  "complete_set",
			creds: Credentials{APIID: "id", APIKey: "key", ECMID: "eid", ECMKey: "ekey"},
			want:  true,
		},
		{
			name:  "empty",
			creds: Credentials{},
			want:  false,
		},
		{
			name:  "missing_ecm_key",
			creds: Credentials{APIID: "id", APIKey: "key", ECMID: "eid"},
			want:  false,
		},
		{
			name:  "only_cp_pair",
			creds: Credentials{APIID: "id", APIKey: "key"},
			want:  false,
		},
		{
			name:  "token_does_not_count",
			creds: Credentials{Token: "tok"},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.creds.HasV2(); got != tt.want {
				t.Errorf("HasV2() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasV3(t *testing.T) {
	if (Credentials{Token: "tok"}).HasV3() != true {
		t.Error("Expected HasV3 with token")
	}
	if (Credentials{APIID: "id", APIKey: "key", ECMID: "eid", ECMKey: "ekey"}).HasV3() {
		t.Error("v2 keys should not satisfy HasV3")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		creds   Credentials
		wantErr bool
	}{
		{name: "v2_only", creds: Credentials{APIID: "a", APIKey: "b", ECMID: "c", ECMKey: "d"}},
		{name: "v3_only", creds: Credentials{Token: "tok"}},
		{name: "both", creds: Credentials{APIID: "a", APIKey: "b", ECMID: "c", ECMKey: "d", Token: "tok"}},
		{name: "none", creds: Credentials{}, wantErr: true},
		{name: "partial_v2", creds: Credentials{APIID: "a", ECMKey: "d"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.creds.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrNoCredentials) {
					t.Errorf("Expected ErrNoCredentials, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvAPIID, "env-id")
	t.Setenv(EnvAPIKey, "env-key")
	t.Setenv(EnvECMID, "env-ecm-id")
	t.Setenv(EnvECMKey, "env-ecm-key")
	t.Setenv(EnvToken, "env-token")

	creds := FromEnv()

	if creds.APIID != "env-id" || creds.APIKey != "env-key" {
		t.Errorf("Unexpected CP keys: %q / %q", creds.APIID, creds.APIKey)
	}
	if creds.ECMID != "env-ecm-id" || creds.ECMKey != "env-ecm-key" {
		t.Errorf("Unexpected ECM keys: %q / %q", creds.ECMID, creds.ECMKey)
	}
	if creds.Token != "env-token" {
		t.Errorf("Unexpected token: %q", creds.Token)
	}
	if !creds.HasV2() || !creds.HasV3() {
		t.Error("Expected both modes from full environment")
	}
}

func TestFromEnvTokenFallback(t *testing.T) {
	t.Setenv(EnvToken, "")
	t.Setenv(EnvTokenAlt, "legacy-token")

	creds := FromEnv()
	if creds.Token != "legacy-token" {
		t.Errorf("Expected fallback to TOKEN, got %q", creds.Token)
	}

	// NCM_API_TOKEN wins when both are set.
	t.Setenv(EnvToken, "primary-token")
	creds = FromEnv()
	if creds.Token != "primary-token" {
		t.Errorf("Expected NCM_API_TOKEN to take precedence, got %q", creds.Token)
	}
}

func TestFingerprint(t *testing.T) {
	a := Credentials{APIID: "a", APIKey: "b", ECMID: "c", ECMKey: "d"}
	b := Credentials{APIID: "a", APIKey: "b", ECMID: "c", ECMKey: "d"}
	c := Credentials{Token: "tok"}

	if a.Fingerprint() != b.Fingerprint() {
		t.Error("Equal credentials must produce equal fingerprints")
	}
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("Different credentials must produce different fingerprints")
	}
	if len(a.Fingerprint()) != 12 {
		t.Errorf("Expected 12-char fingerprint, got %d", len(a.Fingerprint()))
	}

	// Field boundaries matter: ("ab","") vs ("a","b") must differ.
	x := Credentials{APIID: "ab", APIKey: "", ECMID: "c", ECMKey: "d"}
	y := Credentials{APIID: "a", APIKey: "b", ECMID: "c", ECMKey: "d"}
	if x.Fingerprint() == y.Fingerprint() {
		t.Error("Fingerprint must separate fields")
	}
}
