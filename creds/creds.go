// Package creds loads S3 credentials from AWS-CLI-compatible files and
// endpoint pools from plain text lists.
package creds

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultProfile is used when no profile is named.
const DefaultProfile = "default"

// Credentials is an access/secret key pair. Both fields empty means
// "anonymous": requests are sent without an Authorization header.
type Credentials struct {
	AccessKey string
	SecretKey string
}

// IsZero reports whether no credentials are present.
func (c Credentials) IsZero() bool { return c.AccessKey == "" && c.SecretKey == "" }

// DefaultCredentialsPath returns $HOME/.aws/credentials.
func DefaultCredentialsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("creds: trying to find $HOME: %w", err)
	}
	return filepath.Join(home, ".aws", "credentials"), nil
}

// Load reads credentials for profile from the INI-style file at path.
// Empty path means the default location, empty profile means "default".
//
// The format follows the AWS CLI: [section] headers, key = value lines,
// #-prefixed comments. Non-empty lines that match neither are treated as
// continuations and appended to the previous key's value.
func Load(path, profile string) (creds Credentials, err error) {
	if path == "" {
		if path, err = DefaultCredentialsPath(); err != nil {
			return
		}
	}
	if profile == "" {
		profile = DefaultProfile
	}

	file, err := os.Open(path)
	if err != nil {
		return creds, fmt.Errorf("creds: cannot open %s: %w", path, err)
	}
	defer file.Close()

	sections, err := parseProfiles(file)
	if err != nil {
		return creds, fmt.Errorf("creds: %s: %w", path, err)
	}
	section, ok := sections[profile]
	if !ok {
		return creds, fmt.Errorf("creds: profile %s not found in %s", profile, path)
	}
	creds = Credentials{
		AccessKey: section["aws_access_key_id"],
		SecretKey: section["aws_secret_access_key"],
	}
	if creds.IsZero() {
		return creds, fmt.Errorf("creds: profile %s in %s has no keys", profile, path)
	}
	return
}

// parseProfiles scans an INI-style reader into profile → key → value.
func parseProfiles(file *os.File) (map[string]map[string]string, error) {
	sections := make(map[string]map[string]string)
	var current map[string]string
	var lastKey string

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			name := strings.TrimSpace(line[1 : len(line)-1])
			current = make(map[string]string)
			sections[name] = current
			lastKey = ""
			continue
		}
		if current == nil {
			return nil, fmt.Errorf("line %d outside any profile section", lineNo)
		}
		if key, value, found := strings.Cut(line, "="); found {
			lastKey = strings.TrimSpace(key)
			current[lastKey] = trimComment(value)
			continue
		}
		// continuation line: extend the previous key's value
		if lastKey == "" {
			return nil, fmt.Errorf("line %d is neither key = value nor a continuation", lineNo)
		}
		current[lastKey] += trimComment(line)
	}
	return sections, scanner.Err()
}

func trimComment(s string) string {
	if i := strings.Index(s, "#"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// FromEnv reads AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY. Missing
// variables yield zero credentials, not an error.
func FromEnv() Credentials {
	return Credentials{
		AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
	}
}

// LoadEndpoints reads an endpoint pool: one URL per line, blank lines and
// #-prefixed lines ignored.
func LoadEndpoints(path string) (endpoints []string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("creds: cannot open %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		endpoints = append(endpoints, line)
	}
	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("creds: reading %s: %w", path, err)
	}
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("creds: no endpoints in %s", path)
	}
	return
}
