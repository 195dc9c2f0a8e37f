package rpc

// ObjectAttributes locates an encrypted object in the object store.
type ObjectAttributes struct {
	ObjectKey        string `json:"objectKey"`
	DecryptionHeader []byte `json:"decryptionHeader,omitempty"`
	Size             int64  `json:"size"`
}

// MetadataAttributes is the encrypted immutable metadata of a file.
type MetadataAttributes struct {
	EncryptedData    string `json:"encryptedData"`
	DecryptionHeader string `json:"decryptionHeader"`
}

// MagicMetadata is the encrypted envelope of one mutable tier.
type MagicMetadata struct {
	Version int64  `json:"version"`
	Count   int    `json:"count"`
	Data    string `json:"data"`
	Header  string `json:"header"`
}

type GetUploadURLsRequest struct {
	Count int `json:"count"`
}

type UploadURL struct {
	ObjectKey string `json:"objectKey"`
	URL       string `json:"url"`
}

type UploadURLsResponse struct {
	URLs []UploadURL `json:"urls"`
}

type GetMultipartUploadURLsRequest struct {
	Count     int `json:"count"`
	PartCount int `json:"partCount"`
}

type MultipartUploadURLs struct {
	ObjectKey   string   `json:"objectKey"`
	PartURLs    []string `json:"partURLs"`
	CompleteURL string   `json:"completeURL"`
}

type MultipartUploadURLsResponse struct {
	URLs []MultipartUploadURLs `json:"urls"`
}

// CreateFileRequest finalizes an upload.
type CreateFileRequest struct {
	CollectionID       int64              `json:"collectionID"`
	EncryptedKey       []byte             `json:"encryptedKey"`
	KeyDecryptionNonce []byte             `json:"keyDecryptionNonce"`
	File               ObjectAttributes   `json:"file"`
	Thumbnail          ObjectAttributes   `json:"thumbnail"`
	Metadata           MetadataAttributes `json:"metadata"`
	PubMagicMetadata   *MagicMetadata     `json:"pubMagicMetadata,omitempty"`
}

// FileRecord is a file as seen from one collection.
type FileRecord struct {
	ID                 int64              `json:"id"`
	OwnerID            string             `json:"ownerID"`
	CollectionID       int64              `json:"collectionID"`
	EncryptedKey       []byte             `json:"encryptedKey"`
	KeyDecryptionNonce []byte             `json:"keyDecryptionNonce"`
	File               ObjectAttributes   `json:"file"`
	Thumbnail          ObjectAttributes   `json:"thumbnail"`
	Metadata           MetadataAttributes `json:"metadata"`
	MagicMetadata      *MagicMetadata     `json:"magicMetadata,omitempty"`
	PubMagicMetadata   *MagicMetadata     `json:"pubMagicMetadata,omitempty"`
	// UpdationTime is in epoch microseconds.
	UpdationTime int64 `json:"updationTime"`
}

// AddToCollectionRequest links an existing file into another collection.
type AddToCollectionRequest struct {
	FileID             int64  `json:"fileID"`
	CollectionID       int64  `json:"collectionID"`
	EncryptedKey       []byte `json:"encryptedKey"`
	KeyDecryptionNonce []byte `json:"keyDecryptionNonce"`
}

type UpdateMagicMetadataEntry struct {
	ID            int64         `json:"id"`
	MagicMetadata MagicMetadata `json:"magicMetadata"`
}

// UpdateMagicMetadataRequest replaces one tier of every listed file. The
// whole request is rejected if any version is stale.
type UpdateMagicMetadataRequest struct {
	MetadataList []UpdateMagicMetadataEntry `json:"metadataList"`
}

type ListFilesRequest struct {
	CollectionID int64 `json:"collectionID"`
	SinceTime    int64 `json:"sinceTime"`
	Limit        int   `json:"limit,omitempty"`
}

type ListFilesResponse struct {
	Files   []FileRecord `json:"diff"`
	HasMore bool         `json:"hasMore"`
}
