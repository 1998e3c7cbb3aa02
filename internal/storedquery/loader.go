// Copyright (c) 2025 Cosq
// Licensed under the MIT License. See LICENSE file in the project root for details.

package storedquery

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Ext is the stored query file extension.
const Ext = ".cosq"

// queriesSubdir is the directory holding .cosq files, under either the home
// directory (user-level) or the working directory (project-level).
const queriesSubdir = ".cosq/queries"

// UserQueriesDir returns the user-level queries directory, ~/.cosq/queries.
func UserQueriesDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, queriesSubdir), nil
}

// ProjectQueriesDir returns the project-level queries directory relative to
// the working directory, or "" when the working directory is unavailable.
func ProjectQueriesDir() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return filepath.Join(cwd, queriesSubdir)
}

// List loads all stored queries. Project-level queries override user-level
// queries with the same name. Files that fail to parse are skipped with a
// warning rather than failing the whole listing.
func List() ([]*StoredQuery, error) {
	byName := make(map[string]*StoredQuery)

	if userDir, err := UserQueriesDir(); err == nil {
		loadDir(userDir, byName)
	}
	if projectDir := ProjectQueriesDir(); projectDir != "" {
		loadDir(projectDir, byName)
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	queries := make([]*StoredQuery, 0, len(names))
	for _, name := range names {
		queries = append(queries, byName[name])
	}
	return queries, nil
}

// Find loads a stored query by name, checking the project directory first.
func Find(name string) (*StoredQuery, error) {
	filename := name
	if !strings.HasSuffix(filename, Ext) {
		filename += Ext
	}

	if projectDir := ProjectQueriesDir(); projectDir != "" {
		if q, err := loadFile(filepath.Join(projectDir, filename)); err == nil {
			return q, nil
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	userDir, err := UserQueriesDir()
	if err != nil {
		return nil, err
	}
	q, err := loadFile(filepath.Join(userDir, filename))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("stored query %q not found", name)
	}
	return q, err
}

// loadFile reads and parses one .cosq file.
func loadFile(path string) (*StoredQuery, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), Ext)
	q, err := Parse(name, string(contents))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return q, nil
}

// loadDir parses every .cosq file in dir into byName, overriding earlier
// entries with the same name.
func loadDir(dir string, byName map[string]*StoredQuery) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), Ext) {
			continue
		}
		q, err := loadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			slog.Warn("skipping stored query", "path", filepath.Join(dir, entry.Name()), "error", err)
			continue
		}
		byName[q.Name] = q
	}
}
