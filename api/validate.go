package api

import (
	"fmt"
	"regexp"
	"strings"
)

var ipv4Pattern = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)

// ValidateBucketName checks name against the S3 bucket naming rules and
// returns an error naming the violated rule. See
// https://docs.aws.amazon.com/AmazonS3/latest/userguide/bucketnamingrules.html
func ValidateBucketName(name string) error {
	if name == "" {
		return &ConfigError{Reason: "bucket name is empty"}
	}
	if len(name) > 63 {
		return &ConfigError{Reason: fmt.Sprintf("bucket name %q longer than 63 characters", name)}
	}
	if strings.IndexFunc(name, func(r rune) bool { return r >= 'A' && r <= 'Z' }) >= 0 {
		return &ConfigError{Reason: fmt.Sprintf("bucket name %q contains uppercase characters", name)}
	}
	if !isLowerAlnum(name[0]) {
		return &ConfigError{Reason: fmt.Sprintf("bucket name %q must start with a lowercase letter or digit", name)}
	}
	if strings.HasPrefix(name, "xn--") {
		return &ConfigError{Reason: fmt.Sprintf("bucket name %q cannot start with xn--", name)}
	}
	if strings.HasSuffix(name, "-s3alias") {
		return &ConfigError{Reason: fmt.Sprintf("bucket name %q cannot end with -s3alias", name)}
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if !isLowerAlnum(c) && c != '.' && c != '-' {
			return &ConfigError{Reason: fmt.Sprintf("bucket name %q contains invalid character %q", name, c)}
		}
		if i > 0 && c == '-' && name[i-1] == '-' {
			return &ConfigError{Reason: fmt.Sprintf("bucket name %q contains consecutive hyphens", name)}
		}
		if i > 0 && c == '.' && name[i-1] == '.' {
			return &ConfigError{Reason: fmt.Sprintf("bucket name %q contains consecutive periods", name)}
		}
	}
	if ipv4Pattern.MatchString(name) {
		return &ConfigError{Reason: fmt.Sprintf("bucket name %q must not be an IP address", name)}
	}
	return nil
}

func isLowerAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9'
}
