package grpc

import (
	"github.com/SecurityWorks/ente/internal/rpc"
	"github.com/SecurityWorks/ente/internal/server/models"
)

func objectFromRPC(o rpc.ObjectAttributes) models.Object {
	return models.Object{Key: o.ObjectKey, Header: o.DecryptionHeader, Size: o.Size}
}

func objectToRPC(o models.Object) rpc.ObjectAttributes {
	return rpc.ObjectAttributes{ObjectKey: o.Key, DecryptionHeader: o.Header, Size: o.Size}
}

func magicFromRPC(m *rpc.MagicMetadata) *models.Magic {
	if m == nil {
		return nil
	}
	return &models.Magic{Version: m.Version, Count: m.Count, Data: m.Data, Header: m.Header}
}

func magicToRPC(m *models.Magic) *rpc.MagicMetadata {
	if m == nil {
		return nil
	}
	return &rpc.MagicMetadata{Version: m.Version, Count: m.Count, Data: m.Data, Header: m.Header}
}

func fileFromRPC(req *rpc.CreateFileRequest) *models.File {
	return &models.File{
		CollectionID:   req.CollectionID,
		EncryptedKey:   req.EncryptedKey,
		KeyNonce:       req.KeyDecryptionNonce,
		File:           objectFromRPC(req.File),
		Thumbnail:      objectFromRPC(req.Thumbnail),
		MetadataData:   req.Metadata.EncryptedData,
		MetadataHeader: req.Metadata.DecryptionHeader,
		PublicMagic:    magicFromRPC(req.PubMagicMetadata),
	}
}

func fileToRPC(f *models.File) *rpc.FileRecord {
	return &rpc.FileRecord{
		ID:                 f.ID,
		OwnerID:            f.OwnerID,
		CollectionID:       f.CollectionID,
		EncryptedKey:       f.EncryptedKey,
		KeyDecryptionNonce: f.KeyNonce,
		File:               objectToRPC(f.File),
		Thumbnail:          objectToRPC(f.Thumbnail),
		Metadata:           rpc.MetadataAttributes{EncryptedData: f.MetadataData, DecryptionHeader: f.MetadataHeader},
		MagicMetadata:      magicToRPC(f.Magic),
		PubMagicMetadata:   magicToRPC(f.PublicMagic),
		UpdationTime:       f.UpdatedAt,
	}
}

func updatesFromRPC(req *rpc.UpdateMagicMetadataRequest) []models.MagicUpdate {
	out := make([]models.MagicUpdate, 0, len(req.MetadataList))
	for _, e := range req.MetadataList {
		out = append(out, models.MagicUpdate{FileID: e.ID, Magic: *magicFromRPC(&e.MagicMetadata)})
	}
	return out
}
