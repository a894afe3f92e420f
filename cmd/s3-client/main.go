// s3-client sends one signed REST request to an S3-compatible endpoint and
// prints the response body, or stores it into a file.
package main

import (
	"fmt"
	"os"

	"github.com/derektruong/s3xfer/api"
	"github.com/derektruong/s3xfer/internal/cliutil"
	"github.com/derektruong/s3xfer/transport"
	"github.com/spf13/cobra"
)

func main() {
	var (
		access, secret     string
		credsFile, profile string
		endpoint, signURL  string
		method             string
		bucket, key        string
		region             string
		params, headers    []string
		data               string
		dataFile           string
		outfile            string
		verbose            bool
	)

	cmd := &cobra.Command{
		Use:           "s3-client",
		Short:         "Send a signed REST request to an S3-compatible service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cliutil.ResolveCredentials(access, secret, credsFile, profile)
			if err != nil {
				return err
			}
			parameters, err := cliutil.ParseKeyValues(params)
			if err != nil {
				return err
			}
			headerMap, err := cliutil.ParseKeyValues(headers)
			if err != nil {
				return err
			}

			logger := cliutil.NewLogger(verbose)
			client, err := api.NewClient(logger, api.Config{
				Endpoint:     endpoint,
				SignEndpoint: signURL,
				Region:       region,
				AccessKey:    c.AccessKey,
				SecretKey:    c.SecretKey,
			})
			if err != nil {
				return err
			}
			defer client.Close()

			var body transport.BodySource
			switch {
			case data != "" && dataFile != "":
				return fmt.Errorf("--data and --data-file are mutually exclusive")
			case data != "":
				body = transport.NewMemorySource([]byte(data))
			case dataFile != "":
				info, statErr := os.Stat(dataFile)
				if statErr != nil {
					return statErr
				}
				body = &transport.FileSource{Path: dataFile, Size: info.Size()}
			}

			send := api.SendParams{
				Method:  method,
				Bucket:  bucket,
				Key:     key,
				Params:  parameters,
				Headers: headerMap,
				Body:    body,
			}

			if outfile != "" {
				out, openErr := os.Create(outfile)
				if openErr != nil {
					return openErr
				}
				defer out.Close()
				send.Sink = out
				_, err = client.Send(cmd.Context(), send)
				return err
			}

			resp, err := client.Send(cmd.Context(), send)
			if err != nil {
				return err
			}
			if len(resp.Body) > 0 {
				fmt.Println(string(resp.Body))
			}
			for name, values := range resp.Header {
				logger.V(1).Info("response header", "name", name, "values", values)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&access, "access", "a", "", "access key")
	cmd.Flags().StringVarP(&secret, "secret", "s", "", "secret key")
	cmd.Flags().StringVar(&credsFile, "credentials", "", "AWS credentials file ($HOME/.aws/credentials)")
	cmd.Flags().StringVar(&profile, "profile", "", "credentials profile (default)")
	cmd.Flags().StringVarP(&endpoint, "endpoint", "e", "", "endpoint URL, scheme://host[:port]")
	cmd.Flags().StringVar(&signURL, "sign-url", "", "signing endpoint when requests travel through a tunnel")
	cmd.Flags().StringVarP(&method, "method", "m", "GET", "HTTP method")
	cmd.Flags().StringVarP(&bucket, "bucket", "b", "", "bucket name")
	cmd.Flags().StringVarP(&key, "key", "k", "", "object key")
	cmd.Flags().StringVar(&region, "region", "", "signing region (us-east-1)")
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "query parameter key=value, repeatable")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "request header key=value (lowercase keys), repeatable")
	cmd.Flags().StringVarP(&data, "data", "d", "", "request body")
	cmd.Flags().StringVar(&dataFile, "data-file", "", "request body file")
	cmd.Flags().StringVarP(&outfile, "outfile", "o", "", "store the response body into a file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log response headers")
	_ = cmd.MarkFlagRequired("endpoint")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
