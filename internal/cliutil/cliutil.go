// Package cliutil carries the flag plumbing shared by the command-line
// front-ends: credential resolution, key=value flag parsing and logger
// construction.
package cliutil

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/derektruong/s3xfer/creds"
	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
)

// NewLogger builds a stderr logger; verbose raises the verbosity.
func NewLogger(verbose bool) logr.Logger {
	if verbose {
		stdr.SetVerbosity(1)
	}
	return stdr.New(log.New(os.Stderr, "", log.LstdFlags))
}

// ResolveCredentials picks explicit keys when given, otherwise loads the
// profile from the credentials file when a file or profile is named (empty
// path means $HOME/.aws/credentials). With neither named it reads the
// environment, then the default credentials file if it exists. All-empty
// means anonymous.
func ResolveCredentials(access, secret, file, profile string) (creds.Credentials, error) {
	if access != "" || secret != "" {
		if access == "" || secret == "" {
			return creds.Credentials{}, fmt.Errorf("both access and secret keys have to be specified")
		}
		return creds.Credentials{AccessKey: access, SecretKey: secret}, nil
	}
	if file != "" || profile != "" {
		return creds.Load(file, profile)
	}
	if env := creds.FromEnv(); !env.IsZero() {
		return env, nil
	}
	if path, err := creds.DefaultCredentialsPath(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return creds.Load(path, "")
		}
	}
	return creds.Credentials{}, nil
}

// ParseKeyValues turns repeated key=value flags into a map.
func ParseKeyValues(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("malformed key=value pair %q", pair)
		}
		out[key] = value
	}
	return out, nil
}

// ResolveEndpoints accepts either explicit endpoints or a pool file.
func ResolveEndpoints(endpoints []string, file string) ([]string, error) {
	if len(endpoints) > 0 {
		return endpoints, nil
	}
	if file != "" {
		return creds.LoadEndpoints(file)
	}
	return nil, fmt.Errorf("either --endpoint or --endpoints-file is required")
}
