// ABOUTME: Tests for installed-package listers
// ABOUTME: Static, func, and file-backed forms plus UID resolution

package installed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticLister(t *testing.T) {
	l := Static{"com.a", "com.b"}
	pkgs, err := l.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"com.a", "com.b"}, pkgs)
}

func TestListerFunc(t *testing.T) {
	l := ListerFunc(func(context.Context) ([]string, error) {
		return []string{"com.fn"}, nil
	})
	pkgs, err := l.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"com.fn"}, pkgs)
}

func TestFileLister(t *testing.T) {
	path := filepath.Join(t.TempDir(), "installed.txt")
	content := `# system packages
com.android.settings 1000

com.example.app 10042
com.example.other 10042
com.solo 10100
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	l := FileLister{Path: path}
	pkgs, err := l.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"com.android.settings", "com.example.app", "com.example.other", "com.solo",
	}, pkgs)
}

func TestFileListerPackagesForUID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "installed.txt")
	content := `com.example.app 10042
com.example.other 10042
com.solo 10100
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	l := FileLister{Path: path}
	pkgs, err := l.PackagesForUID(context.Background(), 10042)
	require.NoError(t, err)
	assert.Equal(t, []string{"com.example.app", "com.example.other"}, pkgs)

	none, err := l.PackagesForUID(context.Background(), 999)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFileListerMissingFile(t *testing.T) {
	l := FileLister{Path: filepath.Join(t.TempDir(), "nope.txt")}
	_, err := l.List(context.Background())
	assert.Error(t, err)
}
