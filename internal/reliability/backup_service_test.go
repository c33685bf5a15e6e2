package reliability

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	sum, err := fileChecksum(path)
	require.NoError(t, err)
	// sha256("hello")
	assert.Equal(t, "sha256:2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", sum)
}

func TestCreateArchiveRoundTrip(t *testing.T) {
	dir := t.TempDir()

	dbPath := filepath.Join(dir, "folio.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("db-bytes"), 0o644))

	manifestPath := filepath.Join(dir, "backup-manifest.json")
	require.NoError(t, writeManifest(manifestPath, BackupManifest{
		ID:        "test-id",
		Timestamp: time.Date(2026, 2, 1, 2, 0, 0, 0, time.UTC),
		Database:  "folio.db",
		SizeBytes: 8,
		Checksum:  "sha256:abc",
	}))

	archivePath := filepath.Join(dir, "backup.tar.gz")
	require.NoError(t, createArchive(archivePath, []string{dbPath, manifestPath}))

	f, err := os.Open(archivePath)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	contents := make(map[string][]byte)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(tr)
		require.NoError(t, err)
		contents[hdr.Name] = data
	}

	assert.Equal(t, []byte("db-bytes"), contents["folio.db"])

	var manifest BackupManifest
	require.NoError(t, json.Unmarshal(contents["backup-manifest.json"], &manifest))
	assert.Equal(t, "test-id", manifest.ID)
	assert.Equal(t, "folio.db", manifest.Database)
}

func TestObjectKeyPrefix(t *testing.T) {
	s := &BackupService{prefix: "folio-backups"}
	assert.Equal(t, "folio-backups/x.tar.gz", s.objectKey("x.tar.gz"))

	bare := &BackupService{}
	assert.Equal(t, "x.tar.gz", bare.objectKey("x.tar.gz"))
}
