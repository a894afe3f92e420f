// presign-url produces a presigned S3 URL: authentication material in the
// query string, valid for a bounded lifetime.
package main

import (
	"fmt"
	"os"

	"github.com/derektruong/s3xfer/internal/cliutil"
	"github.com/derektruong/s3xfer/sigv4"
	"github.com/spf13/cobra"
)

func main() {
	var (
		access, secret     string
		credsFile, profile string
		endpoint           string
		method             string
		bucket, key        string
		region             string
		expires            int
		params             []string
	)

	cmd := &cobra.Command{
		Use:           "presign-url",
		Short:         "Generate a presigned URL for an S3 object",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cliutil.ResolveCredentials(access, secret, credsFile, profile)
			if err != nil {
				return err
			}
			if c.IsZero() {
				return fmt.Errorf("presigning requires credentials")
			}
			parameters, err := cliutil.ParseKeyValues(params)
			if err != nil {
				return err
			}
			u, err := sigv4.SignedURL(sigv4.Config{
				Access:     c.AccessKey,
				Secret:     c.SecretKey,
				Endpoint:   endpoint,
				Method:     method,
				Bucket:     bucket,
				Key:        key,
				Parameters: parameters,
				Region:     region,
				Expires:    expires,
			})
			if err != nil {
				return err
			}
			fmt.Println(u)
			return nil
		},
	}

	cmd.Flags().StringVarP(&access, "access", "a", "", "access key")
	cmd.Flags().StringVarP(&secret, "secret", "s", "", "secret key")
	cmd.Flags().StringVar(&credsFile, "credentials", "", "AWS credentials file ($HOME/.aws/credentials)")
	cmd.Flags().StringVar(&profile, "profile", "", "credentials profile (default)")
	cmd.Flags().StringVarP(&endpoint, "endpoint", "e", "", "endpoint URL, scheme://host[:port]")
	cmd.Flags().StringVarP(&method, "method", "m", "GET", "HTTP method")
	cmd.Flags().StringVarP(&bucket, "bucket", "b", "", "bucket name")
	cmd.Flags().StringVarP(&key, "key", "k", "", "object key")
	cmd.Flags().StringVar(&region, "region", "", "signing region (us-east-1)")
	cmd.Flags().IntVarP(&expires, "expires", "x", 3600, "URL lifetime in seconds")
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "query parameter key=value, repeatable")
	_ = cmd.MarkFlagRequired("endpoint")
	_ = cmd.MarkFlagRequired("bucket")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
