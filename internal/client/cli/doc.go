// Package cli provides the ente command-line uploader.
//
// The root command loads configuration (file, then flags), opens the local
// cache and dials the backend. Commands that touch file contents unlock the
// key ring first, prompting for the passphrase unless ENTE_PASSPHRASE is set.
//
// Commands:
//   - upload: encrypt and upload files, folders and zip archives
//   - sync: pull remote changes of a collection into the cache
//   - list: show the cached files of a collection
//   - visibility, caption, rename, date: edit magic metadata
//   - export-key: write an age-encrypted copy of the master key
//   - status, forget: check the backend, drop local key material
package cli
