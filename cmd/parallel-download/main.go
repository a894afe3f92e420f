// parallel-download fetches an S3 object into a local file using parallel,
// range-based transfers across a pool of endpoints.
package main

import (
	"fmt"
	"os"

	s3xfer "github.com/derektruong/s3xfer"
	"github.com/derektruong/s3xfer/internal/cliutil"
	"github.com/spf13/cobra"
)

func main() {
	var (
		access, secret     string
		credsFile, profile string
		endpoints          []string
		endpointsFile      string
		signURL            string
		bucket, key        string
		file               string
		region             string
		jobs, partsPerJob  int
		maxRetries         int
		syncMode           bool
		quiet              bool
		verbose            bool
	)

	cmd := &cobra.Command{
		Use:           "parallel-download",
		Short:         "Download an object through parallel ranged transfers",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cliutil.ResolveCredentials(access, secret, credsFile, profile)
			if err != nil {
				return err
			}
			pool, err := cliutil.ResolveEndpoints(endpoints, endpointsFile)
			if err != nil {
				return err
			}

			options := []s3xfer.TransferOption{}
			if syncMode {
				options = append(options, s3xfer.WithSynchronous())
			}
			engine := s3xfer.NewTransfer(cliutil.NewLogger(verbose), options...)
			defer engine.Close()

			var cb s3xfer.ProgressUpdatedCallback
			if !quiet {
				cb = func(p s3xfer.Progress) {
					fmt.Fprintf(os.Stderr, "\r%3d%% (%d/%d bytes)",
						p.Percentage, p.TransferredSize, p.TotalSize)
					if p.Status != s3xfer.ProgressStatusInProgress {
						fmt.Fprintln(os.Stderr)
					}
				}
			}

			return engine.Download(cmd.Context(), s3xfer.TransferConfig{
				AccessKey:    c.AccessKey,
				SecretKey:    c.SecretKey,
				Bucket:       bucket,
				Key:          key,
				File:         file,
				Endpoints:    pool,
				SignEndpoint: signURL,
				Region:       region,
				Jobs:         jobs,
				PartsPerJob:  partsPerJob,
				MaxRetries:   maxRetries,
			}, cb)
		},
	}

	cmd.Flags().StringVarP(&access, "access", "a", "", "access key")
	cmd.Flags().StringVarP(&secret, "secret", "s", "", "secret key")
	cmd.Flags().StringVar(&credsFile, "credentials", "", "AWS credentials file ($HOME/.aws/credentials)")
	cmd.Flags().StringVar(&profile, "profile", "", "credentials profile (default)")
	cmd.Flags().StringArrayVarP(&endpoints, "endpoint", "e", nil, "endpoint URL, repeatable for a pool")
	cmd.Flags().StringVar(&endpointsFile, "endpoints-file", "", "file with one endpoint URL per line")
	cmd.Flags().StringVar(&signURL, "sign-url", "", "signing endpoint when requests travel through a tunnel")
	cmd.Flags().StringVarP(&bucket, "bucket", "b", "", "bucket name")
	cmd.Flags().StringVarP(&key, "key", "k", "", "object key")
	cmd.Flags().StringVarP(&file, "file", "f", "", "destination file")
	cmd.Flags().StringVar(&region, "region", "", "signing region (us-east-1)")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 1, "number of parallel workers")
	cmd.Flags().IntVarP(&partsPerJob, "parts-per-job", "n", 1, "parts fetched sequentially by each worker")
	cmd.Flags().IntVarP(&maxRetries, "max-retries", "r", 1, "total retry budget shared by all workers")
	cmd.Flags().BoolVar(&syncMode, "sync", false, "run workers serially in the calling thread")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress the progress meter")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	_ = cmd.MarkFlagRequired("bucket")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("file")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
