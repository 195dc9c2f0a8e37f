// Package client talks to the backend file service.
//
// # Overview
//
// The package provides:
//  1. The API contract used by the upload pipeline (see the Client
//     interface): pre-signed URL fetching, upload finalization, collection
//     links, magic metadata updates and file listing.
//  2. A gRPC implementation (see GRPCClient) that injects the access token
//     through an interceptor and maps gRPC status codes to sentinel errors.
//  3. Local cache bootstrap (InitDatabase, RunMigrations) wiring an SQLite
//     database and applying embedded goose migrations.
//
// # Error Handling
//
// Backend rejections surface as the sentinels of package common, matched
// with errors.Is: ErrVersionConflict for stale magic metadata versions,
// ErrStorageQuotaExceeded, ErrorUnauthorized, ErrorNotFound and
// ErrInvalidArgument. An unreachable backend yields ErrUnavailable.
package client
