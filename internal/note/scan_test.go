package note

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vomment/vomment/internal/marker"
	"github.com/vomment/vomment/internal/meta"
)

func TestScanFindsMarkersAcrossFiles(t *testing.T) {
	e := newTestEnv(t, quietPlayerStub)

	require.NoError(t, e.store.Add("aaaa", meta.Record{URL: "aaaa.wav", Duration: "00:05"}))
	require.NoError(t, os.MkdirAll(e.resolver.BlobDir(), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(e.resolver.BlobDir(), "aaaa.wav"), []byte("x"), 0644))

	e.writeSource(t, "main.go", "package main\n// 🎙️ Voice Note (00:05) [id:aaaa] by @alice\n// look here\nfunc main() {}\n")
	e.writeSource(t, "plain.txt", "nothing to see\n")
	require.NoError(t, os.MkdirAll(filepath.Join(e.workspace, "sub"), 0755))
	e.writeSource(t, filepath.Join("sub", "app.py"), "# 🎙️ Voice Note (01:00) [id:ghost]\nprint()\n")

	files, err := e.svc.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, "main.go", files[0].Path)
	require.Len(t, files[0].Notes, 1)
	n := files[0].Notes[0]
	assert.Equal(t, 1, n.Line)
	assert.Equal(t, "00:05", n.Duration)
	assert.Equal(t, "id:aaaa", n.TokenRaw)
	assert.Equal(t, "@alice", n.Author)
	assert.Equal(t, "look here", n.Comment)
	assert.True(t, n.Resolvable)

	assert.Equal(t, "sub/app.py", files[1].Path)
	require.Len(t, files[1].Notes, 1)
	assert.False(t, files[1].Notes[0].Resolvable, "marker with no metadata is orphaned")
}

func TestScanHonorsExcludes(t *testing.T) {
	e := newTestEnv(t, quietPlayerStub)

	require.NoError(t, os.MkdirAll(filepath.Join(e.workspace, "node_modules", "dep"), 0755))
	e.writeSource(t, filepath.Join("node_modules", "dep", "index.js"),
		"// 🎙️ Voice Note (00:01) [id:skip]\n")
	require.NoError(t, os.MkdirAll(filepath.Join(e.workspace, ".git"), 0755))
	e.writeSource(t, filepath.Join(".git", "notes.txt"),
		"🎙️ Voice Note (00:01) [id:skip]\n")

	files, err := e.svc.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestScanSkipsOversizedFiles(t *testing.T) {
	e := newTestEnv(t, quietPlayerStub)

	big := make([]byte, maxScanFileSize+1)
	copy(big, "// 🎙️ Voice Note (00:01) [id:aaaa]\n")
	require.NoError(t, os.WriteFile(filepath.Join(e.workspace, "big.go"), big, 0644))

	files, err := e.svc.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestFilesWithNotesFiltersOrphans(t *testing.T) {
	e := newTestEnv(t, quietPlayerStub)

	require.NoError(t, e.store.Add("live", meta.Record{URL: "live.wav"}))
	require.NoError(t, os.MkdirAll(e.resolver.BlobDir(), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(e.resolver.BlobDir(), "live.wav"), []byte("x"), 0644))

	e.writeSource(t, "live.go", "// 🎙️ Voice Note (00:01) [id:live]\n")
	e.writeSource(t, "dead.go", "// 🎙️ Voice Note (00:01) [id:dead]\n")

	files, err := e.svc.FilesWithNotes(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "live.go", files[0].Path)
}

func TestResolvableKinds(t *testing.T) {
	e := newTestEnv(t, quietPlayerStub)
	require.NoError(t, os.MkdirAll(e.resolver.BlobDir(), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(e.resolver.BlobDir(), "legacy.wav"), []byte("x"), 0644))

	records := map[string]meta.Record{
		"remote": {URL: "https://cdn.example/v.wav"},
		"gone":   {URL: "missing.wav"},
	}

	assert.True(t, e.svc.resolvable(marker.Token{Kind: marker.KindURL, Value: "https://x/y.wav"}, records))
	assert.True(t, e.svc.resolvable(marker.Token{Kind: marker.KindID, Value: "remote"}, records))
	assert.False(t, e.svc.resolvable(marker.Token{Kind: marker.KindID, Value: "gone"}, records))
	assert.True(t, e.svc.resolvable(marker.Token{Kind: marker.KindFile, Value: "legacy.wav"}, records))
	assert.False(t, e.svc.resolvable(marker.Token{Kind: marker.KindFile, Value: "nope.wav"}, records))
}
