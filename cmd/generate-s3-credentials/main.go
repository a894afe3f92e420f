// generate-s3-credentials emits a fresh access/secret key pair in the
// AWS-CLI credentials file format, ready to paste into
// $HOME/.aws/credentials or to feed a test MinIO/Ceph deployment.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const (
	accessKeyLen = 20
	secretKeyLen = 40
)

// randomToken renders n characters of URL-safe base64 from a fresh UUID
// stream, uppercased for access keys when asked.
func randomToken(n int, upper bool) (string, error) {
	buf := make([]byte, 0, n)
	for len(buf) < n {
		id, err := uuid.NewRandomFromReader(rand.Reader)
		if err != nil {
			return "", err
		}
		buf = append(buf, id[:]...)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)[:n]
	if upper {
		token = strings.ToUpper(strings.Map(func(r rune) rune {
			switch r {
			case '-', '_':
				return 'A'
			default:
				return r
			}
		}, token))
	}
	return token, nil
}

func main() {
	var profile string

	cmd := &cobra.Command{
		Use:           "generate-s3-credentials",
		Short:         "Generate an access/secret key pair in credentials file format",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			access, err := randomToken(accessKeyLen, true)
			if err != nil {
				return err
			}
			secret, err := randomToken(secretKeyLen, false)
			if err != nil {
				return err
			}
			fmt.Printf("[%s]\naws_access_key_id = %s\naws_secret_access_key = %s\n",
				profile, access, secret)
			return nil
		},
	}

	cmd.Flags().StringVar(&profile, "profile", "default", "profile name for the emitted section")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
