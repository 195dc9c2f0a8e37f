package storage

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/SecurityWorks/ente/internal/common"
	"github.com/SecurityWorks/ente/internal/filex"
	"github.com/SecurityWorks/ente/internal/logging"
	"github.com/SecurityWorks/ente/internal/server/auth"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// Paths served by the HTTP API for the local store.
const (
	ObjectPath   = "/objects"
	CompletePath = "/multipart/complete"
)

const (
	uploadsDir   = ".uploads"
	manifestName = "manifest.cbor"
)

// manifest records a started multipart upload next to its parts.
type manifest struct {
	Key       string `cbor:"1,keyasint"`
	PartCount int    `cbor:"2,keyasint"`
	Created   int64  `cbor:"3,keyasint"`
}

// Signer mints backend URLs that carry an object token.
type Signer struct {
	baseURL  string
	secret   []byte
	validity time.Duration
}

func NewSigner(publicURL string, secret []byte, validity time.Duration) *Signer {
	return &Signer{baseURL: strings.TrimRight(publicURL, "/"), secret: secret, validity: validity}
}

func (s *Signer) URL(path string, c auth.ObjectClaims) (string, error) {
	tok, err := auth.GenerateObjectToken(c, s.secret, s.validity)
	if err != nil {
		return "", err
	}
	return s.baseURL + path + "?token=" + url.QueryEscape(tok), nil
}

// CompleteURL returns the URL the client POSTs its part list to. S3 cannot
// pre-sign the completion, so both stores complete through the backend.
func (s *Signer) CompleteURL(key, uploadID string) (string, error) {
	return s.URL(CompletePath, auth.ObjectClaims{Op: auth.OpComplete, Key: key, UploadID: uploadID})
}

// Verify parses the token of a request to one of the signed paths.
func (s *Signer) Verify(token string, op auth.ObjectOp) (*auth.ObjectClaims, error) {
	return auth.ParseObjectToken(token, op, s.secret)
}

// LocalStore keeps objects under a directory. Its URLs point at the backend
// itself and carry an object token instead of an S3 signature.
type LocalStore struct {
	root   string
	signer *Signer
	log    logging.Logger
}

func NewLocalStore(dir string, signer *Signer, log logging.Logger) (*LocalStore, error) {
	root, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, err
	}
	if _, err := filex.EnsureDir(filepath.Join(root, uploadsDir)); err != nil {
		return nil, err
	}
	return &LocalStore{
		root:   root,
		signer: signer,
		log:    log.With("module", "local_store"),
	}, nil
}

func (s *LocalStore) objectPath(key string) (string, error) {
	if key == "" || !filepath.IsLocal(key) || strings.HasPrefix(key, uploadsDir) {
		return "", fmt.Errorf("%w: object key %q", common.ErrInvalidArgument, key)
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

func (s *LocalStore) uploadPath(uploadID string) (string, error) {
	if _, err := uuid.Parse(uploadID); err != nil {
		return "", fmt.Errorf("%w: upload id %q", common.ErrInvalidArgument, uploadID)
	}
	return filepath.Join(s.root, uploadsDir, uploadID), nil
}

func (s *LocalStore) PutURL(ctx context.Context, key string) (string, error) {
	if _, err := s.objectPath(key); err != nil {
		return "", err
	}
	return s.signer.URL(ObjectPath, auth.ObjectClaims{Op: auth.OpPut, Key: key})
}

func (s *LocalStore) StartMultipart(ctx context.Context, key string, partCount int) (*Multipart, error) {
	if _, err := s.objectPath(key); err != nil {
		return nil, err
	}
	if partCount < 1 {
		return nil, fmt.Errorf("%w: part count %d", common.ErrInvalidArgument, partCount)
	}

	uploadID := uuid.NewString()
	dir, err := s.uploadPath(uploadID)
	if err != nil {
		return nil, err
	}
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, err
	}

	data, err := cbor.Marshal(manifest{Key: key, PartCount: partCount, Created: time.Now().Unix()})
	if err != nil {
		return nil, err
	}
	if err := filex.WriteFileAtomic(filepath.Join(dir, manifestName), data, 0o600); err != nil {
		return nil, err
	}

	m := &Multipart{UploadID: uploadID, PartURLs: make([]string, 0, partCount)}
	for n := 1; n <= partCount; n++ {
		u, err := s.signer.URL(ObjectPath, auth.ObjectClaims{Op: auth.OpPut, Key: key, UploadID: uploadID, Part: n})
		if err != nil {
			return nil, err
		}
		m.PartURLs = append(m.PartURLs, u)
	}
	return m, nil
}

// Write stores the body of a PUT authorized by c, either a whole object or
// one part of a multipart upload, and returns its ETag.
func (s *LocalStore) Write(ctx context.Context, c *auth.ObjectClaims, body io.Reader) (string, error) {
	path, err := s.objectPath(c.Key)
	if err != nil {
		return "", err
	}

	if c.UploadID != "" {
		dir, err := s.uploadPath(c.UploadID)
		if err != nil {
			return "", err
		}
		m, err := s.readManifest(dir)
		if err != nil {
			return "", err
		}
		if m.Key != c.Key || c.Part < 1 || c.Part > m.PartCount {
			return "", fmt.Errorf("%w: part %d of %s", common.ErrInvalidArgument, c.Part, c.Key)
		}
		path = filepath.Join(dir, strconv.Itoa(c.Part))
	} else if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", err
	}

	h := blake3.New()
	if err := writeAtomic(path, io.TeeReader(body, h)); err != nil {
		return "", err
	}
	return etag(h), nil
}

func (s *LocalStore) readManifest(dir string) (*manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, err
	}
	var m manifest
	if err := cbor.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", dir, err)
	}
	return &m, nil
}

// CompleteMultipart concatenates the parts into the object. Every listed
// ETag must match the content of its part.
func (s *LocalStore) CompleteMultipart(ctx context.Context, key, uploadID string, parts []Part) error {
	path, err := s.objectPath(key)
	if err != nil {
		return err
	}
	dir, err := s.uploadPath(uploadID)
	if err != nil {
		return err
	}
	m, err := s.readManifest(dir)
	if err != nil {
		return err
	}
	if m.Key != key {
		return fmt.Errorf("%w: upload %s is not for %s", common.ErrInvalidArgument, uploadID, key)
	}
	if len(parts) != m.PartCount {
		return fmt.Errorf("%w: %d parts listed, %d expected", common.ErrInvalidArgument, len(parts), m.PartCount)
	}

	files := make([]io.Reader, 0, len(parts))
	for _, p := range parts {
		f, err := os.Open(filepath.Join(dir, strconv.Itoa(p.Number)))
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: part %d was not uploaded", common.ErrInvalidArgument, p.Number)
		}
		if err != nil {
			return err
		}
		defer f.Close()

		h := blake3.New()
		if _, err := io.Copy(h, f); err != nil {
			return err
		}
		if etag(h) != `"`+strings.Trim(p.ETag, `"`)+`"` {
			return fmt.Errorf("%w: etag of part %d does not match", common.ErrInvalidArgument, p.Number)
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return err
		}
		files = append(files, f)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	if err := writeAtomic(path, io.MultiReader(files...)); err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		s.log.Warn(ctx, "remove upload dir failed", "upload_id", uploadID, "error", err)
	}
	return nil
}

func (s *LocalStore) Size(ctx context.Context, key string) (int64, error) {
	path, err := s.objectPath(key)
	if err != nil {
		return 0, err
	}
	fi, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, common.ErrorNotFound
	}
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// PurgeUploads removes multipart uploads started before cutoff.
func (s *LocalStore) PurgeUploads(ctx context.Context, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, uploadsDir))
	if err != nil {
		return 0, err
	}
	var n int
	for _, e := range entries {
		dir := filepath.Join(s.root, uploadsDir, e.Name())
		m, err := s.readManifest(dir)
		if err != nil {
			s.log.Debug(ctx, "skip upload dir", "dir", dir, "error", err)
			continue
		}
		if time.Unix(m.Created, 0).Before(cutoff) {
			if err := os.RemoveAll(dir); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

func etag(h *blake3.Hasher) string {
	return `"` + hex.EncodeToString(h.Sum(nil)) + `"`
}

// writeAtomic streams r to a temporary file next to path and renames it
// into place.
func writeAtomic(path string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	name := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}
	return os.Rename(name, path)
}
