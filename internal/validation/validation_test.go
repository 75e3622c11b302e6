package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
		wantErr    bool
	}{
		{"generated words", "abc-def-ghi", false},
		{"underscores", "team_one", false},
		{"exactly 32 bytes", strings.Repeat("a", 32), false},
		{"too short", "ab", true},
		{"too long", strings.Repeat("a", 33), true},
		{"starts with hyphen", "-abc", true},
		{"contains space", "abc def", true},
		{"contains slash", "abc/def", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentifier(tt.identifier)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateIdentifier(%q) error = %v, wantErr %v", tt.identifier, err, tt.wantErr)
			}
		})
	}
}

func TestValidateGroupName(t *testing.T) {
	tests := []struct {
		name      string
		groupName string
		wantErr   bool
	}{
		{"simple", "default", false},
		{"with spaces", "My Lab Cluster", false},
		{"three characters", "lab", false},
		{"two characters", "ab", true},
		{"padded two characters", "  ab  ", true},
		{"empty", "", true},
		{"too long", strings.Repeat("x", 65), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGroupName(tt.groupName)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateGroupName(%q) error = %v, wantErr %v", tt.groupName, err, tt.wantErr)
			}
		})
	}
}

func TestValidateSpecAndDeploymentName(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"nginx", "nginx", false},
		{"underscored", "nginx_test_run", false},
		{"dotted", "redis.v7", false},
		{"empty", "", true},
		{"too long", strings.Repeat("n", 33), true},
		{"space", "my spec", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateSpecName(tt.value); (err != nil) != tt.wantErr {
				t.Errorf("ValidateSpecName(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if err := ValidateDeploymentName(tt.value); (err != nil) != tt.wantErr {
				t.Errorf("ValidateDeploymentName(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePublicKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"governance program", "GovER5Lthms3bLBqWub97yVrMmEogzX7xNjdXpPPCVZw", false},
		{"system program", "11111111111111111111111111111111", false},
		{"empty", "", true},
		{"not base58", "0OIl", true},
		{"too short", "abc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePublicKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePublicKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestValidateReplicas(t *testing.T) {
	tests := []struct {
		replicas int
		wantErr  bool
	}{
		{1, false},
		{255, false},
		{0, true},
		{-1, true},
		{256, true},
	}

	for _, tt := range tests {
		if err := ValidateReplicas(tt.replicas); (err != nil) != tt.wantErr {
			t.Errorf("ValidateReplicas(%d) error = %v, wantErr %v", tt.replicas, err, tt.wantErr)
		}
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"https", "https://raw.githubusercontent.com/org/repo/main/docker-compose.yml", false},
		{"http with port", "http://signal.daonetes.org:8080", false},
		{"empty", "", true},
		{"no scheme", "example.com/compose.yml", true},
		{"ftp", "ftp://example.com/compose.yml", true},
		{"no host", "https://", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestValidateHostName(t *testing.T) {
	tests := []struct {
		name     string
		hostname string
		wantErr  bool
	}{
		{"simple", "node1", false},
		{"fqdn", "node1.daonetes", false},
		{"empty", "", true},
		{"starts with dot", ".node", true},
		{"underscore", "node_1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHostName(tt.hostname)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateHostName(%q) error = %v, wantErr %v", tt.hostname, err, tt.wantErr)
			}
		})
	}
}

func TestValidationErrors(t *testing.T) {
	var errs ValidationErrors
	if errs.HasErrors() {
		t.Fatal("empty ValidationErrors reports errors")
	}
	if !errs.Check("identifier", "abc", ValidateIdentifier("abc")) {
		t.Fatal("Check() rejected a valid identifier")
	}
	if errs.Check("name", "ab", ValidateGroupName("ab")) {
		t.Fatal("Check() accepted a short group name")
	}
	errs.Reject("limit", "0", CodeOutOfRange, "must be between 1 and 100")

	if !errs.HasErrors() {
		t.Fatal("HasErrors() = false after Check")
	}
	want := "name: group name must be longer than 2 characters (and 1 more errors)"
	if got := errs.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if got := errs.Field("name"); got == nil || got.Code != CodeTooShort || got.Value != "ab" {
		t.Errorf("Field(name) = %+v", got)
	}
	if got := errs.Field("limit"); got == nil || got.Code != CodeOutOfRange {
		t.Errorf("Field(limit) = %+v", got)
	}
	if errs.Field("identifier") != nil {
		t.Error("Field(identifier) recorded a passing check")
	}
}

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"short identifier", ValidateIdentifier("ab"), CodeTooShort},
		{"long identifier", ValidateIdentifier("abcdefghijklmnopqrstuvwxyz0123456"), CodeTooLong},
		{"identifier characters", ValidateIdentifier("abc def"), CodeInvalidChars},
		{"empty spec name", ValidateSpecName(""), CodeRequired},
		{"blank group name", ValidateGroupName("   "), CodeTooShort},
		{"not base58", ValidatePublicKey("not-a-key"), CodeInvalidAddress},
		{"short address", ValidatePublicKey("1111"), CodeInvalidAddress},
		{"no replicas", ValidateReplicas(0), CodeOutOfRange},
		{"ftp URL", ValidateURL("ftp://example.com/spec.yml"), CodeInvalidURL},
		{"hostless URL", ValidateURL("https://"), CodeInvalidURL},
		{"host name", ValidateHostName("node_1"), CodeInvalidChars},
		{"empty key name", ValidateKeyName(" "), CodeRequired},
		{"long key name", ValidateKeyName(strings.Repeat("k", MaxKeyNameLen+1)), CodeTooLong},
		{"plain error", errors.New("boom"), CodeInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Fatal("validator accepted the input")
			}
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}
