package config

import (
	"fmt"
	"strings"
)

// ParseRepoSpec extracts owner and repo from a repository spec. Accepted
// forms, all normalized by the same rule (trailing ".git" stripped, host
// prefix stripped):
//
//	owner/name
//	https://github.com/owner/name
//	https://github.com/owner/name.git
//	git@github.com:owner/name.git
func ParseRepoSpec(spec string) (owner, repo string, err error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return "", "", fmt.Errorf("empty repository spec")
	}

	// Strip .git suffix if present
	spec = strings.TrimSuffix(spec, ".git")

	// Strip a host prefix, HTTPS or SSH form
	if i := strings.Index(spec, "github.com/"); i >= 0 {
		spec = spec[i+len("github.com/"):]
	} else if i := strings.Index(spec, "github.com:"); i >= 0 {
		spec = spec[i+len("github.com:"):]
	} else if strings.Contains(spec, "://") || strings.Contains(spec, "@") {
		return "", "", fmt.Errorf("unsupported repository URL format: %s", spec)
	}

	spec = strings.Trim(spec, "/")

	parts := strings.Split(spec, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("could not extract owner/repo from spec: %s", spec)
	}

	return parts[0], parts[1], nil
}
