// Copyright (c) 2025 Cosq
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cosmos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"

	"cosq/cli/internal/auth"
)

// fakeAccount serves pkranges and per-range query pages for one container.
type fakeAccount struct {
	mu     sync.Mutex
	ranges []string
	// pages[rangeID] is the sequence of pages served for that range; each
	// page after the first requires the previous page's continuation token.
	pages map[string][]fakePage
	// served counts query requests per range.
	served map[string]int
}

type fakePage struct {
	docs         []any
	charge       float64
	continuation string
}

func (f *fakeAccount) handler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-ms-version") != apiVersion {
			t.Errorf("missing x-ms-version header on %s %s", r.Method, r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "type%3Daad%26ver%3D1.0%26sig%3D") {
			t.Errorf("unexpected Authorization header: %q", r.Header.Get("Authorization"))
		}

		switch {
		case strings.HasSuffix(r.URL.Path, "/pkranges"):
			entries := make([]map[string]string, 0, len(f.ranges))
			for _, id := range f.ranges {
				entries = append(entries, map[string]string{"id": id})
			}
			json.NewEncoder(w).Encode(map[string]any{"PartitionKeyRanges": entries})

		case strings.HasSuffix(r.URL.Path, "/docs"):
			if r.Header.Get("x-ms-documentdb-isquery") != "True" {
				t.Error("query request missing x-ms-documentdb-isquery header")
			}
			rangeID := r.Header.Get("x-ms-documentdb-partitionkeyrangeid")
			f.mu.Lock()
			defer f.mu.Unlock()
			pages := f.pages[rangeID]
			idx := f.served[rangeID]
			if idx >= len(pages) {
				t.Errorf("unexpected extra request for range %q", rangeID)
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			page := pages[idx]
			if idx > 0 && r.Header.Get(headerContinuation) != pages[idx-1].continuation {
				t.Errorf("range %q page %d: continuation = %q, want %q",
					rangeID, idx, r.Header.Get(headerContinuation), pages[idx-1].continuation)
			}
			f.served[rangeID]++

			w.Header().Set(headerCharge, fmt.Sprintf("%g", page.charge))
			if page.continuation != "" {
				w.Header().Set(headerContinuation, page.continuation)
			}
			json.NewEncoder(w).Encode(map[string]any{"Documents": page.docs})

		default:
			t.Errorf("unexpected request path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func TestQueryFanOutAndPagination(t *testing.T) {
	account := &fakeAccount{
		ranges: []string{"r0", "r1"},
		pages: map[string][]fakePage{
			"r0": {{docs: []any{"A", "B"}, charge: 2.5}},
			"r1": {
				{docs: []any{"C"}, charge: 1.0, continuation: "tok1"},
				{docs: []any{"D"}, charge: 1.5},
			},
		},
		served: map[string]int{},
	}
	srv := httptest.NewServer(account.handler(t))
	defer srv.Close()

	client := New(srv.URL, auth.Static("test-token"))
	result, err := client.Query(context.Background(), "mydb", "users", "SELECT * FROM c", nil)
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}

	want := []any{"A", "B", "C", "D"}
	if !reflect.DeepEqual(result.Documents, want) {
		t.Errorf("documents = %v, want %v", result.Documents, want)
	}
	if result.RequestCharge != 5.0 {
		t.Errorf("request charge = %v, want 5.0", result.RequestCharge)
	}
	if account.served["r1"] != 2 {
		t.Errorf("range r1 served %d pages, want 2", account.served["r1"])
	}
}

func TestQueryDeterministicOrderUnderConcurrency(t *testing.T) {
	account := &fakeAccount{
		ranges: []string{"r0", "r1", "r2", "r3"},
		pages: map[string][]fakePage{
			"r0": {{docs: []any{"0"}}},
			"r1": {{docs: []any{"1"}}},
			"r2": {{docs: []any{"2"}}},
			"r3": {{docs: []any{"3"}}},
		},
		served: map[string]int{},
	}
	srv := httptest.NewServer(account.handler(t))
	defer srv.Close()

	client := New(srv.URL, auth.Static("test-token"), WithConcurrency(4))
	result, err := client.Query(context.Background(), "mydb", "users", "SELECT * FROM c", nil)
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	want := []any{"0", "1", "2", "3"}
	if !reflect.DeepEqual(result.Documents, want) {
		t.Errorf("documents = %v, want %v (range-discovery order)", result.Documents, want)
	}
}

func TestQueryEmptyRangesIsError(t *testing.T) {
	account := &fakeAccount{ranges: nil, served: map[string]int{}}
	srv := httptest.NewServer(account.handler(t))
	defer srv.Close()

	client := New(srv.URL, auth.Static("test-token"))
	_, err := client.Query(context.Background(), "mydb", "users", "SELECT * FROM c", nil)
	if err == nil {
		t.Fatal("Query() expected error for zero partition key ranges")
	}
	if !strings.Contains(err.Error(), "partition key ranges") {
		t.Errorf("error = %v, want mention of partition key ranges", err)
	}
}

func TestQueryForbiddenSurfacesPermissionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"code":"Forbidden","message":"Request blocked by Auth\r\nActivityId: abc, Microsoft.Azure.Documents.Common/2.14.0"}`)
	}))
	defer srv.Close()

	client := New(srv.URL, auth.Static("test-token"))
	_, err := client.Query(context.Background(), "mydb", "users", "SELECT * FROM c", nil)

	var permErr *PermissionError
	if !errors.As(err, &permErr) {
		t.Fatalf("Query() error = %v, want *PermissionError", err)
	}
	if permErr.Message != "Request blocked by Auth" {
		t.Errorf("message = %q, want ActivityId suffix stripped", permErr.Message)
	}
	if !strings.Contains(permErr.Hint, "RBAC") {
		t.Errorf("hint = %q, want remediation guidance", permErr.Hint)
	}
}

func TestQueryAPIErrorCarriesStatusAndMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"message":"Syntax error near WHERE"}`)
	}))
	defer srv.Close()

	client := New(srv.URL, auth.Static("test-token"))
	_, err := client.Query(context.Background(), "mydb", "users", "SELEC * FROM c", nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Query() error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", apiErr.Status)
	}
	if apiErr.Message != "Syntax error near WHERE" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestListDatabasesAndContainers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/dbs":
			fmt.Fprint(w, `{"Databases":[{"id":"db1"},{"id":"db2"}]}`)
		case "/dbs/db1/colls":
			fmt.Fprint(w, `{"DocumentCollections":[{"id":"users"},{"id":"orders"}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := New(srv.URL, auth.Static("test-token"))

	dbs, err := client.ListDatabases(context.Background())
	if err != nil {
		t.Fatalf("ListDatabases() error: %v", err)
	}
	if !reflect.DeepEqual(dbs, []string{"db1", "db2"}) {
		t.Errorf("databases = %v", dbs)
	}

	colls, err := client.ListContainers(context.Background(), "db1")
	if err != nil {
		t.Fatalf("ListContainers() error: %v", err)
	}
	if !reflect.DeepEqual(colls, []string{"users", "orders"}) {
		t.Errorf("containers = %v", colls)
	}
}

func TestAuthHeaderFormat(t *testing.T) {
	header := authHeader("eyJ0eXAi.test.token")
	if !strings.HasPrefix(header, "type%3Daad%26ver%3D1.0%26sig%3D") {
		t.Errorf("header = %q, missing aad prefix", header)
	}
	if !strings.Contains(header, "eyJ0eXAi") {
		t.Errorf("header = %q, missing token", header)
	}
}
