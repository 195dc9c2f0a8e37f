// Package common contains shared constants and sentinel errors used across
// the uploader client and the reference backend.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

const (
	// EncryptionChunkSize is the plaintext grain of the streaming cipher and
	// of the chunked reader.
	EncryptionChunkSize = 4 * 1024 * 1024

	// MultipartChunksPerPart is the number of encrypted chunks carried by one
	// multipart part. Streams with fewer chunks go out as a single PUT.
	MultipartChunksPerPart = 5

	// MaxFileSize is the hard ceiling for a single asset (10 GB).
	MaxFileSize int64 = 10 * 1024 * 1024 * 1024

	// LivePhotoMaxAssetSize caps each component of a live photo (20 MiB).
	LivePhotoMaxAssetSize int64 = 20 * 1024 * 1024
)
