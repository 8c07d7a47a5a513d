// Package graph provides the HTTP client for the remote graph-based
// knowledge service.
package graph

import (
	"context"
	"fmt"
	"hash/fnv"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/memlinkio/memlink/pkg/config"
	"github.com/memlinkio/memlink/pkg/errors"
	"github.com/memlinkio/memlink/pkg/interfaces"
	"github.com/memlinkio/memlink/pkg/types"
)

const (
	uploadPath    = "/documents/upload"
	queryPath     = "/query"
	labelListPath = "/graph/label/list"
	documentsPath = "/documents"

	// slugWords bounds how many leading words feed the derived filename.
	slugWords = 5
)

// Client talks to the remote graph knowledge service over HTTP. Every call
// is bounded by the configured timeout; a timeout is surfaced as a failure
// so the coordinator can fall back, never as a hang.
type Client struct {
	http   *resty.Client
	cfg    *config.GraphConfig
	logger interfaces.Logger
}

// NewClient creates a graph service client from config.
func NewClient(cfg *config.GraphConfig, logger interfaces.Logger) *Client {
	if cfg == nil {
		cfg = config.NewGraphConfig()
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("User-Agent", "memlink/1.0")

	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}

	return &Client{http: client, cfg: cfg, logger: logger}
}

// FilenameFor derives the deterministic upload filename for a text: a slug
// of the leading words plus a short content hash, optionally prefixed with
// the local record id for later pattern-based cleanup.
func FilenameFor(text, localID string) string {
	words := strings.Fields(strings.ToLower(text))
	if len(words) > slugWords {
		words = words[:slugWords]
	}
	for i, w := range words {
		words[i] = sanitizeSlugWord(w)
	}
	slug := strings.Trim(strings.Join(words, "-"), "-")
	if slug == "" {
		slug = "memory"
	}

	h := fnv.New32a()
	h.Write([]byte(text))
	hash := fmt.Sprintf("%08x", h.Sum32())

	if localID != "" {
		return fmt.Sprintf("mem_%s_%s-%s.txt", shortID(localID), slug, hash)
	}
	return fmt.Sprintf("%s-%s.txt", slug, hash)
}

// PatternForRecord returns the filename glob that matches every document
// uploaded for the given local record id.
func PatternForRecord(localID string) string {
	return fmt.Sprintf("mem_%s_*", shortID(localID))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func sanitizeSlugWord(w string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, w)
}

// UploadDocument uploads the text as a generated file whose body starts with
// a topics metadata header line.
func (c *Client) UploadDocument(ctx context.Context, text string, topics []string, localID string) (*types.GraphUploadResult, error) {
	if text == "" {
		return nil, errors.NewInvalidInputError("text cannot be empty")
	}

	filename := FilenameFor(text, localID)
	body := fmt.Sprintf("# Topics: %s\n\n%s", strings.Join(topics, ", "), text)

	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("file", filename, strings.NewReader(body)).
		Post(uploadPath)
	if err != nil {
		return nil, c.wrapTransportError("document upload", err)
	}
	if resp.IsError() {
		return nil, errors.NewRemoteStorageError(
			fmt.Sprintf("upload rejected with status %d", resp.StatusCode()), nil)
	}

	if c.logger != nil {
		c.logger.Debug("Uploaded document to graph service", map[string]interface{}{
			"filename": filename,
			"topics":   topics,
		})
	}

	return &types.GraphUploadResult{Filename: filename, Status: "uploaded"}, nil
}

// Query runs a knowledge query against the graph service.
func (c *Client) Query(ctx context.Context, req *types.GraphQueryRequest) (*types.GraphQueryResponse, error) {
	if req == nil || req.Query == "" {
		return nil, errors.NewInvalidInputError("query cannot be empty")
	}
	if req.TopK == 0 {
		req.TopK = c.cfg.TopK
	}
	if req.ResponseType == "" {
		req.ResponseType = "Multiple Paragraphs"
	}

	var result types.GraphQueryResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Post(queryPath)
	if err != nil {
		return nil, c.wrapTransportError("knowledge query", err)
	}
	if resp.IsError() {
		return nil, errors.NewNetworkFailureError(
			fmt.Sprintf("query rejected with status %d", resp.StatusCode()), nil)
	}

	return &result, nil
}

// ListLabels returns all entity/relation labels known to the service.
func (c *Client) ListLabels(ctx context.Context) ([]string, error) {
	var labels []string
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&labels).
		Get(labelListPath)
	if err != nil {
		return nil, c.wrapTransportError("label list", err)
	}
	if resp.IsError() {
		return nil, errors.NewNetworkFailureError(
			fmt.Sprintf("label list rejected with status %d", resp.StatusCode()), nil)
	}
	return labels, nil
}

// DeleteDocument deletes a document by ID.
func (c *Client) DeleteDocument(ctx context.Context, docID string) error {
	if docID == "" {
		return errors.NewMissingFieldError("doc_id")
	}

	resp, err := c.http.R().
		SetContext(ctx).
		Delete(documentsPath + "/" + docID)
	if err != nil {
		return c.wrapTransportError("document delete", err)
	}
	if resp.IsError() && resp.StatusCode() != http.StatusNotFound {
		return errors.NewRemoteStorageError(
			fmt.Sprintf("delete rejected with status %d", resp.StatusCode()), nil)
	}
	return nil
}

// DeleteByPattern deletes all documents whose filename matches a glob
// pattern. Used for linked-memory cleanup after a local delete.
func (c *Client) DeleteByPattern(ctx context.Context, pattern string) error {
	if pattern == "" {
		return errors.NewMissingFieldError("pattern")
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"file_pattern": pattern}).
		Delete(documentsPath)
	if err != nil {
		return c.wrapTransportError("pattern delete", err)
	}
	if resp.IsError() && resp.StatusCode() != http.StatusNotFound {
		return errors.NewRemoteStorageError(
			fmt.Sprintf("pattern delete rejected with status %d", resp.StatusCode()), nil)
	}
	return nil
}

// HealthCheck probes the service through the label list endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.ListLabels(ctx)
	return err
}

func (c *Client) wrapTransportError(operation string, err error) error {
	if isTimeout(err) {
		return errors.NewTimeoutError(operation)
	}
	return errors.NewNetworkFailureError(operation+" failed", err)
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "Client.Timeout") ||
		strings.Contains(msg, "timeout")
}

var _ interfaces.GraphService = (*Client)(nil)
