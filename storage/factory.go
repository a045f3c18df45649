package storage

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/docvault/document-escrow-backend/interfaces"
)

// Factory creates storage backends from location URIs and aggregates them
// into redundant multi-backend configurations.
type Factory struct {
	log *slog.Logger
}

// NewFactory creates a factory instance.
func NewFactory(logger *slog.Logger) *Factory {
	return &Factory{log: logger}
}

// StorageBackendFor creates a storage backend from a parsed location.
// The URI format is [scheme]://[auth@]host[:port][/path][?params]
//
// Supported schemes:
//   - memory:// - In-process storage for tests and single-node setups
//   - file://   - Local filesystem storage
//   - s3://     - Amazon S3 or compatible object storage
//   - ipfs://   - IPFS distributed storage
//   - vault://  - HashiCorp Vault KV v2 storage
//
// Returns an error if the scheme is unsupported.
func (f *Factory) StorageBackendFor(loc interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	switch strings.ToLower(loc.Scheme) {
	case "memory":
		return NewMemoryBackend(), nil
	case "file":
		return f.createFileBackend(loc)
	case "s3":
		return f.createS3Backend(loc)
	case "ipfs":
		return f.createIPFSBackend(loc)
	case "vault":
		return f.createVaultBackend(loc)
	default:
		return nil, fmt.Errorf("%w: unsupported backend scheme: %s", interfaces.ErrInvalidLocationURI, loc.Scheme)
	}
}

// CreateMultiBackend creates a multi-storage backend from a list of
// locations. Invalid locations are skipped with a warning; at least one
// backend must be created.
func (f *Factory) CreateMultiBackend(locations []interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	backends := make([]interfaces.StorageBackend, 0, len(locations))

	for _, loc := range locations {
		backend, err := f.StorageBackendFor(loc)
		if err != nil {
			f.log.Warn("Failed to create storage backend",
				"err", err,
				slog.String("location_uri", loc.String()))
			continue
		}
		backends = append(backends, backend)
	}

	if len(backends) == 0 {
		return nil, fmt.Errorf("no valid storage backends created")
	}

	return NewMultiStorageBackend(backends, f.log), nil
}

// createFileBackend creates a file system storage backend.
// URI format: file:///absolute/path or file://./relative/path
func (f *Factory) createFileBackend(loc interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	f.log.Debug("Creating file backend", slog.String("uri", loc.String()))

	path := loc.Path
	if loc.Host != "" {
		path = loc.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path in file URI: %s", interfaces.ErrInvalidLocationURI, loc)
	}

	return NewFileBackend(path, f.log)
}

// createS3Backend creates an S3 or S3-compatible storage backend.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket/prefix?region=eu-1&endpoint=custom.s3.com
func (f *Factory) createS3Backend(loc interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	f.log.Debug("Creating S3 backend", slog.String("uri", loc.String()))

	bucketName := loc.Host
	prefix := strings.TrimPrefix(loc.Path, "/")

	region := loc.GetParam("region")
	if region == "" {
		region = "us-east-1"
	}
	endpoint := loc.GetParam("endpoint")

	var accessKey, secretKey string
	if loc.Auth != "" {
		parts := strings.SplitN(loc.Auth, ":", 2)
		accessKey = parts[0]
		if len(parts) == 2 {
			secretKey = parts[1]
		}
	}

	return NewS3Backend(bucketName, prefix, region, endpoint, accessKey, secretKey, f.log)
}

// createIPFSBackend creates an IPFS storage backend.
// URI format: ipfs://host:port/?timeout=30s
func (f *Factory) createIPFSBackend(loc interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	f.log.Debug("Creating IPFS backend", slog.String("uri", loc.String()))

	host := loc.Host
	port := "5001"
	if h, p, ok := strings.Cut(loc.Host, ":"); ok {
		host = h
		port = p
	}

	timeout := loc.GetParam("timeout")
	if timeout == "" {
		timeout = "30s"
	}

	return NewIPFSBackend(host, port, timeout, f.log)
}

// createVaultBackend creates a Vault KV v2 storage backend.
// URI format: vault://TOKEN@host:port/mount/path?tls=true
func (f *Factory) createVaultBackend(loc interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	f.log.Debug("Creating Vault backend", slog.String("uri", loc.String()))

	scheme := "http"
	if loc.GetParamBool("tls") {
		scheme = "https"
	}
	address := fmt.Sprintf("%s://%s", scheme, loc.Host)

	parts := strings.SplitN(strings.Trim(loc.Path, "/"), "/", 2)
	mountPath := "secret"
	dataPath := "escrow"
	if len(parts) > 0 && parts[0] != "" {
		mountPath = parts[0]
	}
	if len(parts) == 2 {
		dataPath = parts[1]
	}

	return NewVaultBackend(address, mountPath, dataPath, loc.Auth, f.log)
}
