// ABOUTME: Installed-package listers feeding purge reconciliation
// ABOUTME: Static, file-backed, and func adapters behind one interface

package installed

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Lister reports which packages are currently installed. Purge deletes
// settings for anything not in the list.
type Lister interface {
	List(ctx context.Context) ([]string, error)
}

// ListerFunc adapts a function to the Lister interface.
type ListerFunc func(ctx context.Context) ([]string, error)

func (f ListerFunc) List(ctx context.Context) ([]string, error) { return f(ctx) }

// Static is a fixed package list.
type Static []string

func (s Static) List(context.Context) ([]string, error) { return s, nil }

// FileLister reads package names from a file, one per line. Blank lines
// and #-comments are skipped. UIDs after a whitespace separator are
// tolerated and ignored.
type FileLister struct {
	Path string
}

func (f FileLister) List(context.Context) ([]string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("reading installed list: %w", err)
	}
	var pkgs []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if fields := strings.Fields(line); len(fields) > 0 {
			pkgs = append(pkgs, fields[0])
		}
	}
	return pkgs, nil
}

// UIDResolver maps a UID to its package set. One UID can own several
// packages; an unknown UID resolves to an empty list, not an error.
type UIDResolver interface {
	PackagesForUID(ctx context.Context, uid int) ([]string, error)
}

// PackagesForUID implements UIDResolver for the "package uid" file format.
func (f FileLister) PackagesForUID(_ context.Context, uid int) ([]string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("reading installed list: %w", err)
	}
	want := fmt.Sprintf("%d", uid)
	var pkgs []string
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) < 2 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if fields[1] == want {
			pkgs = append(pkgs, fields[0])
		}
	}
	return pkgs, nil
}
