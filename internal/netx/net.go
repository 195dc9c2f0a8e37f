// Package netx holds the raw HTTP calls made against pre-signed object
// storage URLs.
package netx

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"

	"github.com/SecurityWorks/ente/internal/common"
)

// StatusError reports a non-2xx answer from the object store.
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upload failed: %s", e.Status)
	}
	return fmt.Sprintf("upload failed: %s; body: %s", e.Status, e.Body)
}

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 1024

// UploadToPresignedURL PUTs body to url and returns the ETag the store
// assigned to it. A 2xx response without an ETag is an error.
func UploadToPresignedURL(ctx context.Context, client *http.Client, url string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := do(client, req)
	if err != nil {
		return "", err
	}

	etag := resp.Header.Get("ETag")
	if etag == "" {
		return "", common.ErrMissingETag
	}
	return etag, nil
}

// PostXML POSTs v encoded as XML to url.
func PostXML(ctx context.Context, client *http.Client, url string, v any) error {
	body, err := xml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal xml: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/xml")

	_, err = do(client, req)
	return err
}

func do(client *http.Client, req *http.Request) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status, Body: string(b)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp, nil
}
