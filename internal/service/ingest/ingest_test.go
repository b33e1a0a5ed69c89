package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/HectorPOsuna/escaner-red/internal/repo/memory"
	"github.com/HectorPOsuna/escaner-red/internal/service/scan"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mixedReport = `{"Devices":[
	{"IP":"10.0.0.1","MAC":"00:1A:2B:3C:4D:01","Hostname":"one","OpenPorts":"22"},
	{"IP":"bogus"},
	{"IP":"10.0.0.3","MAC":"zz","Hostname":"three"}
]}`

const validReport = `{"Devices":[{"IP":"10.0.0.5","MAC":"00:1A:2B:3C:4D:5E","Hostname":"srv1","OpenPorts":"22,443"}]}`

func newIngestor(strict bool, archiver EvidenceArchiver) (ScanIngestor, *memory.InventoryStore) {
	store := memory.NewInventoryStore()
	return NewScanIngestor(scan.NewNormalizer(0), scan.NewReconciler(store), archiver, strict), store
}

func TestScanIngestor_StrictRejectsWholeBatch(t *testing.T) {
	ingestor, store := newIngestor(true, nil)

	result, err := ingestor.Ingest(context.Background(), &Request{Payload: []byte(mixedReport), Source: SourceHTTP})
	require.Error(t, err)
	assert.True(t, scan.IsValidationError(err))
	assert.Len(t, result.Problems, 2)
	assert.Empty(t, store.Devices())
}

func TestScanIngestor_LenientProcessesValidHosts(t *testing.T) {
	ingestor, store := newIngestor(false, nil)

	result, err := ingestor.Ingest(context.Background(), &Request{Payload: []byte(mixedReport), Source: SourceHTTP})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Summary.Processed)
	assert.Equal(t, 1, result.Summary.Errors)
	assert.Len(t, result.Problems, 2)
	assert.Equal(t, "10.0.0.0/24", result.Subnet)

	devices := store.Devices()
	require.Len(t, devices, 2)
	assert.Nil(t, devices[1].MAC)
}

func TestScanIngestor_EmptyListAlwaysRejected(t *testing.T) {
	ingestor, _ := newIngestor(false, nil)

	_, err := ingestor.Ingest(context.Background(), &Request{Payload: []byte(`{"Devices":[]}`)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, scan.ErrEmptyDeviceList))
}

func TestScanIngestor_ArchivesRawPayload(t *testing.T) {
	dir := t.TempDir()
	ingestor, _ := newIngestor(true, NewFileArchiver(dir))

	result, err := ingestor.Ingest(context.Background(), &Request{Payload: []byte(validReport), Source: SourceHTTP})
	require.NoError(t, err)
	require.NotEmpty(t, result.ArchiveKey)

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(result.ArchiveKey)))
	require.NoError(t, err)
	assert.JSONEq(t, validReport, string(data))
}

func TestNewArchiveKey(t *testing.T) {
	key, err := NewArchiveKey(time.Date(2025, 11, 20, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Regexp(t, `^2025/11/20/[0-9a-f]{32}\.json$`, key)
}

func TestFileImporter_MarksFiles(t *testing.T) {
	dir := t.TempDir()
	ingestor, store := newIngestor(true, nil)
	importer := NewFileImporter(ingestor, "")

	good := filepath.Join(dir, "scan_results.json")
	require.NoError(t, os.WriteFile(good, []byte(validReport), 0o644))
	result, err := importer.ImportFile(context.Background(), good)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Summary.Processed)
	assert.FileExists(t, good+ProcessedSuffix)
	assert.NoFileExists(t, good)
	assert.Len(t, store.Devices(), 1)

	bad := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"Devices":[{"IP":"nope"}]}`), 0o644))
	_, err = importer.ImportFile(context.Background(), bad)
	require.Error(t, err)
	assert.FileExists(t, bad+RejectedSuffix)

	_, err = importer.ImportFile(context.Background(), filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestSpoolWatcher_ImportsExistingAndNewFiles(t *testing.T) {
	dir := t.TempDir()
	ingestor, store := newIngestor(true, nil)

	existing := filepath.Join(dir, "existing.json")
	require.NoError(t, os.WriteFile(existing, []byte(validReport), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	watcher, err := NewSpoolWatcher(dir, 50*time.Millisecond, NewFileImporter(ingestor, SourceSpool))
	require.NoError(t, err)

	imported := make(chan string, 4)
	watcher.OnImported(func(path string, result *Result, err error) {
		if err == nil {
			imported <- filepath.Base(path)
		}
	})
	require.NoError(t, watcher.Start())
	defer watcher.Stop()

	select {
	case name := <-imported:
		assert.Equal(t, "existing.json", name)
	case <-time.After(5 * time.Second):
		t.Fatal("existing spool file was not imported")
	}

	next := `{"Devices":[{"IP":"10.0.0.6","Hostname":"srv2"}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "next.json"), []byte(next), 0o644))

	select {
	case name := <-imported:
		assert.Equal(t, "next.json", name)
	case <-time.After(5 * time.Second):
		t.Fatal("new spool file was not imported")
	}

	assert.Len(t, store.Devices(), 2)
	assert.FileExists(t, existing+ProcessedSuffix)
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))
}

func TestIsSpoolFile(t *testing.T) {
	assert.True(t, isSpoolFile("scan.json"))
	assert.True(t, isSpoolFile("SCAN.JSON"))
	assert.False(t, isSpoolFile("scan.json.processed"))
	assert.False(t, isSpoolFile(".scan.json"))
	assert.False(t, isSpoolFile("scan.txt"))
}
