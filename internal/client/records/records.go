// Package records turns backend file records into local files with their
// key, metadata and magic tiers decrypted.
package records

import (
	"fmt"

	"github.com/SecurityWorks/ente/internal/client/client"
	"github.com/SecurityWorks/ente/internal/client/magic"
	"github.com/SecurityWorks/ente/internal/client/models"
	"github.com/SecurityWorks/ente/internal/cryptox"
	"github.com/SecurityWorks/ente/internal/rpc"
)

// Decrypt unwraps the file key with the key of rec's collection and opens
// everything sealed under it.
func Decrypt(rec *rpc.FileRecord, keys *cryptox.KeyRing) (*models.File, error) {
	key, err := keys.UnwrapFileKey(rec.CollectionID, rec.EncryptedKey, rec.KeyDecryptionNonce)
	if err != nil {
		return nil, fmt.Errorf("file %d: %w", rec.ID, err)
	}

	f := &models.File{
		ID:           rec.ID,
		OwnerID:      rec.OwnerID,
		CollectionID: rec.CollectionID,
		EncryptedKey: rec.EncryptedKey,
		KeyNonce:     rec.KeyDecryptionNonce,
		Key:          key,
		File:         objectFromRPC(rec.File),
		Thumbnail:    objectFromRPC(rec.Thumbnail),
		UpdatedAt:    rec.UpdationTime,
	}

	if err := cryptox.DecryptJSON(rec.Metadata.EncryptedData, rec.Metadata.DecryptionHeader, key, &f.Metadata); err != nil {
		return nil, fmt.Errorf("file %d metadata: %w", rec.ID, err)
	}
	if f.PrivateMagic, err = magic.Open(client.EnvelopeFromRPC(rec.MagicMetadata), key); err != nil {
		return nil, fmt.Errorf("file %d private magic: %w", rec.ID, err)
	}
	if f.PublicMagic, err = magic.Open(client.EnvelopeFromRPC(rec.PubMagicMetadata), key); err != nil {
		return nil, fmt.Errorf("file %d public magic: %w", rec.ID, err)
	}
	return f, nil
}

func objectFromRPC(o rpc.ObjectAttributes) models.ObjectAttributes {
	return models.ObjectAttributes{ObjectKey: o.ObjectKey, DecryptionHeader: o.DecryptionHeader, Size: o.Size}
}

// ObjectToRPC is the inverse of the conversion Decrypt applies.
func ObjectToRPC(o models.ObjectAttributes) rpc.ObjectAttributes {
	return rpc.ObjectAttributes{ObjectKey: o.ObjectKey, DecryptionHeader: o.DecryptionHeader, Size: o.Size}
}
