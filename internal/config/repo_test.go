package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRepoSpec(t *testing.T) {
	tests := []struct {
		name      string
		spec      string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{
			name:      "bare owner/name",
			spec:      "octocat/hello-world",
			wantOwner: "octocat",
			wantRepo:  "hello-world",
		},
		{
			name:      "https URL",
			spec:      "https://github.com/octocat/hello-world",
			wantOwner: "octocat",
			wantRepo:  "hello-world",
		},
		{
			name:      "https URL with .git",
			spec:      "https://github.com/octocat/hello-world.git",
			wantOwner: "octocat",
			wantRepo:  "hello-world",
		},
		{
			name:      "ssh URL",
			spec:      "git@github.com:octocat/hello-world.git",
			wantOwner: "octocat",
			wantRepo:  "hello-world",
		},
		{
			name:      "trailing slash",
			spec:      "https://github.com/octocat/hello-world/",
			wantOwner: "octocat",
			wantRepo:  "hello-world",
		},
		{
			name:    "empty spec",
			spec:    "",
			wantErr: true,
		},
		{
			name:    "missing repo name",
			spec:    "octocat",
			wantErr: true,
		},
		{
			name:    "unsupported host",
			spec:    "https://gitlab.com/octocat/hello-world",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, err := ParseRepoSpec(tt.spec)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.wantOwner, owner)
			assert.Equal(t, tt.wantRepo, repo)
		})
	}
}

func TestTokenObfuscationRoundTrip(t *testing.T) {
	token := "ghp_exampletoken1234567890"

	obfuscated, err := obfuscateToken(token)
	assert.NoError(t, err)
	assert.NotEqual(t, token, obfuscated)
	assert.Contains(t, obfuscated, "OBFS:")

	restored, err := deobfuscateToken(obfuscated)
	assert.NoError(t, err)
	assert.Equal(t, token, restored)
}

func TestDeobfuscateTokenPassthrough(t *testing.T) {
	// Plain values stored before obfuscation existed come back untouched.
	restored, err := deobfuscateToken("plain-token")
	assert.NoError(t, err)
	assert.Equal(t, "plain-token", restored)
}
