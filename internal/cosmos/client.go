// Copyright (c) 2025 Cosq
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cosmos implements a client for the Cosmos DB data-plane REST API.
// It executes SQL queries against containers, transparently fanning the query
// out across the container's partition key ranges and following continuation
// tokens, and accumulates the request charge across every page and range.
package cosmos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cosq/cli/internal/auth"
	"cosq/cli/internal/logging"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// apiVersion is the Cosmos DB REST API version sent with every request.
const apiVersion = "2018-12-31"

// defaultConcurrency bounds in-flight partition range requests per query.
const defaultConcurrency = 4

// Cosmos DB request/response headers used by the executor.
const (
	headerContinuation = "x-ms-continuation"
	headerCharge       = "x-ms-request-charge"
	headerActivityID   = "x-ms-activity-id"
)

// QueryParam is one wire-level bind parameter. Name carries the leading "@"
// (for step references the literal dotted token, e.g. "@customer.id").
type QueryParam struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// QueryResult holds the documents returned by one query invocation plus the
// request charge summed across all pages and partition key ranges.
type QueryResult struct {
	Documents     []any
	RequestCharge float64
}

// Client talks to the Cosmos DB data-plane REST API of one account.
// It is safe for concurrent use by multiple goroutines.
type Client struct {
	http        *http.Client
	endpoint    string
	tokens      auth.TokenSource
	concurrency int
}

// Option configures a Client.
type Option func(*Client)

// WithConcurrency bounds the number of partition key ranges queried in
// parallel. Values below one fall back to the default.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client, mainly for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a client for the account at endpoint. Requests are signed with
// bearer tokens from the given source.
func New(endpoint string, tokens auth.TokenSource, opts ...Option) *Client {
	c := &Client{
		endpoint:    strings.TrimRight(endpoint, "/"),
		tokens:      tokens,
		http:        &http.Client{Timeout: 30 * time.Second},
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// authHeader builds the Authorization header value for AAD token auth.
func authHeader(token string) string {
	return "type%3Daad%26ver%3D1.0%26sig%3D" + url.QueryEscape(token)
}

// newRequest creates a request with the headers every data-plane call needs.
func (c *Client) newRequest(ctx context.Context, method, u string, body io.Reader) (*http.Request, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", authHeader(token))
	req.Header.Set("x-ms-date", time.Now().UTC().Format(http.TimeFormat))
	req.Header.Set("x-ms-version", apiVersion)
	req.Header.Set(headerActivityID, uuid.NewString())
	return req, nil
}

// getJSON performs a metadata GET and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return statusError(resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ListDatabases returns the database names in the account.
func (c *Client) ListDatabases(ctx context.Context) ([]string, error) {
	slog.Debug("listing databases", "endpoint", c.endpoint)
	var list struct {
		Databases []struct {
			ID string `json:"id"`
		} `json:"Databases"`
	}
	if err := c.getJSON(ctx, c.endpoint+"/dbs", &list); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(list.Databases))
	for _, d := range list.Databases {
		names = append(names, d.ID)
	}
	slog.Debug("found databases", "count", len(names))
	return names, nil
}

// ListContainers returns the container names in a database.
func (c *Client) ListContainers(ctx context.Context, database string) ([]string, error) {
	slog.Debug("listing containers", "database", database)
	var list struct {
		DocumentCollections []struct {
			ID string `json:"id"`
		} `json:"DocumentCollections"`
	}
	u := fmt.Sprintf("%s/dbs/%s/colls", c.endpoint, database)
	if err := c.getJSON(ctx, u, &list); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(list.DocumentCollections))
	for _, coll := range list.DocumentCollections {
		names = append(names, coll.ID)
	}
	slog.Debug("found containers", "count", len(names))
	return names, nil
}

// partitionKeyRanges returns the container's current partition key range ids
// in server order. Ranges are re-discovered on every query; the topology can
// change between calls and a stale cache would silently miss data.
func (c *Client) partitionKeyRanges(ctx context.Context, database, container string) ([]string, error) {
	var ranges struct {
		PartitionKeyRanges []struct {
			ID string `json:"id"`
		} `json:"PartitionKeyRanges"`
	}
	u := fmt.Sprintf("%s/dbs/%s/colls/%s/pkranges", c.endpoint, database, container)
	if err := c.getJSON(ctx, u, &ranges); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(ranges.PartitionKeyRanges))
	for _, r := range ranges.PartitionKeyRanges {
		ids = append(ids, r.ID)
	}
	slog.Debug("found partition key ranges", "count", len(ids))
	return ids, nil
}

// queryRange executes the query body against a single partition key range,
// following continuation tokens until the server stops returning one.
func (c *Client) queryRange(ctx context.Context, u string, body []byte, rangeID string) ([]any, float64, error) {
	var documents []any
	var totalCharge float64
	continuation := ""

	for {
		req, err := c.newRequest(ctx, http.MethodPost, u, bytes.NewReader(body))
		if err != nil {
			return nil, 0, err
		}
		req.Header.Set("Content-Type", "application/query+json")
		req.Header.Set("x-ms-documentdb-isquery", "True")
		req.Header.Set("x-ms-documentdb-query-enablecrosspartition", "True")
		req.Header.Set("x-ms-documentdb-partitionkeyrangeid", rangeID)
		if continuation != "" {
			req.Header.Set(headerContinuation, continuation)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, 0, err
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			respBody, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, 0, statusError(resp.StatusCode, string(respBody))
		}

		next := resp.Header.Get(headerContinuation)
		if charge, err := strconv.ParseFloat(resp.Header.Get(headerCharge), 64); err == nil {
			totalCharge += charge
		}

		var page struct {
			Documents []any `json:"Documents"`
		}
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if err != nil {
			return nil, 0, err
		}
		documents = append(documents, page.Documents...)

		if next == "" {
			return documents, totalCharge, nil
		}
		slog.Debug("continuing with pagination token", "range", rangeID)
		continuation = next
	}
}

// Query executes a parameterized SQL query against a container, fanning out
// across partition key ranges and following pagination. Documents come back
// in range-discovery order then page order, regardless of which range
// finishes first; the charge is the sum over every request made.
func (c *Client) Query(ctx context.Context, database, container, sql string, params []QueryParam) (*QueryResult, error) {
	slog.Debug("executing query", "database", database, "container", container,
		"sql", logging.Mask(sql), "params", len(params))

	if params == nil {
		params = []QueryParam{}
	}
	body, err := json.Marshal(map[string]any{
		"query":      sql,
		"parameters": params,
	})
	if err != nil {
		return nil, err
	}

	ranges, err := c.partitionKeyRanges(ctx, database, container)
	if err != nil {
		return nil, err
	}
	if len(ranges) == 0 {
		return nil, fmt.Errorf("container %q reported no partition key ranges", container)
	}

	u := fmt.Sprintf("%s/dbs/%s/colls/%s/docs", c.endpoint, database, container)

	// One slot per range keeps the merge order fixed under concurrent fan-out.
	type rangeResult struct {
		docs   []any
		charge float64
	}
	results := make([]rangeResult, len(ranges))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, rangeID := range ranges {
		g.Go(func() error {
			docs, charge, err := c.queryRange(gCtx, u, body, rangeID)
			if err != nil {
				return fmt.Errorf("partition key range %s: %w", rangeID, err)
			}
			slog.Debug("partition query complete", "range", rangeID, "docs", len(docs), "charge", charge)
			results[i] = rangeResult{docs: docs, charge: charge}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &QueryResult{}
	for _, r := range results {
		out.Documents = append(out.Documents, r.docs...)
		out.RequestCharge += r.charge
	}
	slog.Debug("query complete", "count", len(out.Documents), "requestCharge", out.RequestCharge)
	return out, nil
}
