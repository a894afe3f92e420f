package s3xfer

import (
	"context"

	"github.com/go-playground/validator/v10"
)

// validate use a single instance of validate, it caches struct info
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
}

// TransferConfig describes one parallel upload or download.
type TransferConfig struct {
	// AccessKey and SecretKey are the S3 credentials. Both empty sends
	// anonymous requests.
	AccessKey string `json:"accessKey" yaml:"accessKey"`
	SecretKey string `json:"secretKey" yaml:"secretKey"`

	// Bucket and Key name the remote object.
	Bucket string `json:"bucket" yaml:"bucket" validate:"required"`
	Key    string `json:"key" yaml:"key" validate:"required"`

	// File is the local file to read (upload) or write (download).
	// Exactly one of File and Data must be set.
	File string `json:"file" yaml:"file"`

	// Data is the in-memory source (upload) or destination (download).
	// For downloads it must be at least the object size.
	Data []byte `json:"-" yaml:"-"`

	// Offset shifts reads (upload) or writes (download) within File or
	// Data.
	Offset int64 `json:"offset" yaml:"offset" validate:"gte=0"`

	// Size bounds an upload from Data or File; zero means "everything".
	Size int64 `json:"size" yaml:"size" validate:"gte=0"`

	// Endpoints is the pool of equivalent S3 front-ends; each worker picks
	// one uniformly at random.
	Endpoints []string `json:"endpoints" yaml:"endpoints" validate:"required,min=1,dive,url"`

	// SignEndpoint overrides the endpoint used for signing, letting
	// requests travel through tunnels. Empty means "same as transport".
	SignEndpoint string `json:"signEndpoint" yaml:"signEndpoint" validate:"omitempty,url"`

	// Region defaults to us-east-1.
	Region string `json:"region" yaml:"region"`

	// Jobs is the number of parallel workers, default 1.
	Jobs int `json:"jobs" yaml:"jobs" validate:"gte=0"`

	// PartsPerJob is the number of parts each worker transfers
	// sequentially, default 1.
	PartsPerJob int `json:"partsPerJob" yaml:"partsPerJob" validate:"gte=0"`

	// MaxRetries bounds the total retries across all workers of this
	// transfer. It is a shared pool, not a per-part allowance.
	MaxRetries int `json:"maxRetries" yaml:"maxRetries" validate:"gte=0"`

	// PayloadHash is the precomputed hex SHA-256 of the payload; only used
	// when the transfer collapses to a single PUT. Empty signs with
	// UNSIGNED-PAYLOAD.
	PayloadHash string `json:"payloadHash" yaml:"payloadHash"`

	// Metadata is attached to uploads as x-amz-meta-* headers.
	Metadata map[string]string `json:"metadata" yaml:"metadata"`
}

func (c TransferConfig) Validate(ctx context.Context) error {
	if err := validate.StructCtx(ctx, c); err != nil {
		return err
	}
	if (c.AccessKey == "") != (c.SecretKey == "") {
		return &ConfigError{Reason: "both access and secret keys have to be specified"}
	}
	if c.File == "" && c.Data == nil {
		return &ConfigError{Reason: "either a file name or a data buffer is required"}
	}
	if c.File != "" && c.Data != nil {
		return &ConfigError{Reason: "file name and data buffer are mutually exclusive"}
	}
	return nil
}

// withDefaults fills the zero values the engine relies on.
func (c TransferConfig) withDefaults() TransferConfig {
	if c.Jobs == 0 {
		c.Jobs = 1
	}
	if c.PartsPerJob == 0 {
		c.PartsPerJob = 1
	}
	return c
}

// ConfigError reports a transfer configuration problem, surfaced before
// any network I/O.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "s3xfer: " + e.Reason }
