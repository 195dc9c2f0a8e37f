// Package services contains the application services behind the client
// CLI. This file defines the key service: unlocking the master key from a
// passphrase, the liveness probe, and the recovery export of the key.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"fmt"
	"io"

	"filippo.io/age"
	"filippo.io/age/armor"
	"github.com/SecurityWorks/ente/internal/client/client"
	"github.com/SecurityWorks/ente/internal/client/repositories/metadata"
	"github.com/SecurityWorks/ente/internal/common"
	"github.com/SecurityWorks/ente/internal/cryptox"
	"github.com/SecurityWorks/ente/internal/dbx"
)

const keyVerifier = "verifier"

// AuthService defines key and session operations for the CLI.
//
// Contract:
//   - Unlock: derive the master key from a passphrase. The first unlock of a
//     fresh cache generates the salt and stores it with a verifier; later
//     unlocks are checked against that verifier.
//   - Ping: check backend liveness.
//   - ExportKey: write the master key as an age file sealed with a recovery
//     passphrase.
//   - Close: release underlying client resources.
//   - Forget: wipe the locally stored salt and verifier.
type AuthService interface {
	Unlock(ctx context.Context, passphrase []byte) (*cryptox.KeyRing, error)
	Ping(ctx context.Context) error
	ExportKey(ctx context.Context, keys *cryptox.KeyRing, recoveryPassphrase string, w io.Writer) error
	Close(ctx context.Context) error
	Forget(ctx context.Context) error
}

type authService struct {
	client client.Client
	db     *sql.DB
}

// NewAuthService constructs an AuthService bound to the given API client and DB.
func NewAuthService(client client.Client, db *sql.DB) AuthService {
	return &authService{client: client, db: db}
}

func (a *authService) getMetadataRepo() metadata.Repository {
	return metadata.NewSQLiteRepository(a.db)
}

// Unlock returns common.ErrorUnauthorized when passphrase does not match the
// stored verifier.
func (a *authService) Unlock(ctx context.Context, passphrase []byte) (*cryptox.KeyRing, error) {
	repo := a.getMetadataRepo()

	salt, err := repo.Get(ctx, metadata.KeySalt)
	if err != nil {
		return nil, err
	}
	if salt == nil {
		return a.initialize(ctx, passphrase)
	}

	verifier, err := repo.Get(ctx, keyVerifier)
	if err != nil {
		return nil, err
	}

	masterKey := cryptox.DeriveMasterKey(passphrase, salt)
	if subtle.ConstantTimeCompare(verifier, cryptox.MakeVerifier(masterKey)) == 0 {
		common.WipeByteArray(masterKey)
		return nil, common.ErrorUnauthorized
	}
	return cryptox.NewKeyRing(masterKey), nil
}

// initialize stores a new salt and the verifier of the derived key in a
// single transaction.
func (a *authService) initialize(ctx context.Context, passphrase []byte) (*cryptox.KeyRing, error) {
	salt := common.GenerateRandByteArray(cryptox.SaltBytes)
	masterKey := cryptox.DeriveMasterKey(passphrase, salt)

	err := dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, metadata.KeySalt, salt); err != nil {
			return err
		}
		return repo.Set(ctx, keyVerifier, cryptox.MakeVerifier(masterKey))
	})
	if err != nil {
		return nil, fmt.Errorf("save key metadata: %w", err)
	}
	return cryptox.NewKeyRing(masterKey), nil
}

// Ping proxies a liveness check to the underlying client.
func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *authService) ExportKey(ctx context.Context, keys *cryptox.KeyRing, recoveryPassphrase string, w io.Writer) error {
	recipient, err := age.NewScryptRecipient(recoveryPassphrase)
	if err != nil {
		return err
	}

	aw := armor.NewWriter(w)
	ew, err := age.Encrypt(aw, recipient)
	if err != nil {
		return err
	}
	if _, err := ew.Write(keys.MasterKey()); err != nil {
		return err
	}
	if err := ew.Close(); err != nil {
		return err
	}
	return aw.Close()
}

// ImportKey reads a file written by ExportKey.
func ImportKey(r io.Reader, recoveryPassphrase string) (*cryptox.KeyRing, error) {
	identity, err := age.NewScryptIdentity(recoveryPassphrase)
	if err != nil {
		return nil, err
	}
	dr, err := age.Decrypt(armor.NewReader(r), identity)
	if err != nil {
		return nil, fmt.Errorf("open recovery file: %w", err)
	}
	key, err := io.ReadAll(dr)
	if err != nil {
		return nil, err
	}
	if len(key) != cryptox.KeyBytes {
		return nil, fmt.Errorf("recovery file holds %d bytes, want %d", len(key), cryptox.KeyBytes)
	}
	return cryptox.NewKeyRing(key), nil
}

// Close releases resources held by the underlying client.
func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}

func (a *authService) Forget(ctx context.Context) error {
	repo := a.getMetadataRepo()
	if err := repo.Delete(ctx, metadata.KeySalt); err != nil {
		return err
	}
	return repo.Delete(ctx, keyVerifier)
}
