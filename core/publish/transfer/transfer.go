// Package transfer implements the chunked block upload protocol against a
// SAS-style renewable storage target.
package transfer

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/packbridge/packbridge/core/infra/logging"
	"github.com/packbridge/packbridge/core/infra/metrics"
)

const (
	// DefaultChunkSize is the nominal block size for uploads.
	DefaultChunkSize = 6 * 1024 * 1024
	// DefaultRenewalThreshold keeps renewals safely under the backend's
	// credential expiry.
	DefaultRenewalThreshold = 450 * time.Second
)

// Target is a renewable upload destination. URI returns the current
// credentialled endpoint; Renew refreshes it and must complete before the
// next block PUT uses it.
type Target interface {
	URI() string
	Renew(ctx context.Context) error
}

// Uploader pushes a file to a storage target in fixed-size blocks and
// commits the ordered block list.
type Uploader struct {
	HTTPClient       *http.Client
	ChunkSize        int64
	RenewalThreshold time.Duration
	// BlockPutRetries adds bounded re-PUTs for individual blocks. Block IDs
	// make re-PUT-ting a block safe; the commit call is never retried.
	BlockPutRetries int
	Metrics         metrics.Metrics
	// Progress reports uploaded and total byte counts after each block.
	Progress func(done, total int64)

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New returns an uploader with default chunking and renewal settings.
func New() *Uploader {
	return &Uploader{
		HTTPClient:       &http.Client{Timeout: 5 * time.Minute},
		ChunkSize:        DefaultChunkSize,
		RenewalThreshold: DefaultRenewalThreshold,
		Metrics:          metrics.Noop{},
	}
}

// BlockID returns the block identifier for a chunk sequence number:
// base64 of the ASCII zero-padded 4-digit decimal counter.
func BlockID(n int) string {
	return base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%04d", n)))
}

// ChunkCount returns ceil(size/chunk), with a zero-byte file yielding
// exactly one empty chunk.
func ChunkCount(size, chunk int64) int {
	if size <= 0 {
		return 1
	}
	return int((size + chunk - 1) / chunk)
}

// Upload splits the file into blocks, PUTs each one, renews credentials on
// the threshold timer, and commits the ordered block list. Any block or
// renewal failure aborts the whole upload.
func (u *Uploader) Upload(ctx context.Context, target Target, path string) error {
	if target == nil {
		return fmt.Errorf("nil upload target")
	}
	chunkSize := u.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	threshold := u.RenewalThreshold
	if threshold <= 0 {
		threshold = DefaultRenewalThreshold
	}
	m := u.Metrics
	if m == nil {
		m = metrics.Noop{}
	}
	nowFn := u.now
	if nowFn == nil {
		nowFn = time.Now
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open payload: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat payload: %w", err)
	}
	size := info.Size()
	chunks := ChunkCount(size, chunkSize)

	logging.Info("transfer", "starting chunked upload", "path", path, "size", size, "chunks", chunks)

	blockIDs := make([]string, 0, chunks)
	lastRenewal := nowFn()
	var done int64

	for i := 0; i < chunks; i++ {
		offset := int64(i) * chunkSize
		length := size - offset
		if length > chunkSize {
			length = chunkSize
		}
		if length < 0 {
			length = 0
		}
		buf := make([]byte, length)
		if length > 0 {
			if _, err := io.ReadFull(io.NewSectionReader(f, offset, length), buf); err != nil {
				return fmt.Errorf("read chunk %d: %w", i, err)
			}
		}

		id := BlockID(i)
		if err := u.putBlock(ctx, target, id, buf); err != nil {
			return fmt.Errorf("upload block %d: %w", i, err)
		}
		blockIDs = append(blockIDs, id)
		m.IncChunksUploaded()
		done += length
		if u.Progress != nil {
			u.Progress(done, size)
		}

		if i < chunks-1 && nowFn().Sub(lastRenewal) >= threshold {
			logging.Info("transfer", "renewing storage credentials", "after_chunk", i)
			if err := target.Renew(ctx); err != nil {
				return fmt.Errorf("renew storage credentials: %w", err)
			}
			m.IncCredentialRenewals()
			lastRenewal = nowFn()
		}
	}

	if err := u.commitBlockList(ctx, target, blockIDs); err != nil {
		return fmt.Errorf("commit block list: %w", err)
	}
	return nil
}

func (u *Uploader) putBlock(ctx context.Context, target Target, id string, data []byte) error {
	attempts := u.BlockPutRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := u.doSleep(ctx, time.Duration(attempt)*time.Second); err != nil {
				return err
			}
		}
		lastErr = u.put(ctx, blockURL(target.URI(), id), data)
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func (u *Uploader) commitBlockList(ctx context.Context, target Target, blockIDs []string) error {
	// The block list is order-sensitive: a reordering corrupts the artifact.
	return u.put(ctx, blockListURL(target.URI()), BlockListXML(blockIDs))
}

func (u *Uploader) put(ctx context.Context, rawURL string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, rawURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	client := u.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		msg := strings.TrimSpace(string(data))
		if msg == "" {
			msg = resp.Status
		}
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, msg)
	}
	return nil
}

func (u *Uploader) doSleep(ctx context.Context, d time.Duration) error {
	if u.sleep != nil {
		return u.sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func blockURL(sasURI, blockID string) string {
	return sasURI + querySep(sasURI) + "comp=block&blockid=" + url.QueryEscape(blockID)
}

func blockListURL(sasURI string) string {
	return sasURI + querySep(sasURI) + "comp=blocklist"
}

func querySep(sasURI string) string {
	if strings.Contains(sasURI, "?") {
		return "&"
	}
	return "?"
}

// BlockListXML renders the literal block-list commit document with each
// identifier as a Latest element in commit order.
func BlockListXML(blockIDs []string) []byte {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?><BlockList>`)
	for _, id := range blockIDs {
		b.WriteString("<Latest>")
		b.WriteString(id)
		b.WriteString("</Latest>")
	}
	b.WriteString("</BlockList>")
	return b.Bytes()
}
