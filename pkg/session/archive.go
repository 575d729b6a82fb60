package session

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Archive entry names.
const (
	entrySnapshot = "snapshot.json"
	entryDisplay  = "display.s"
	entryMangled  = "mangled.s"
	entryAnalyzer = "mca.txt"
	entryCompiler = "compiler.txt"
)

// WriteArchive writes snap as a zip archive: snapshot.json plus one text
// entry per stream.
func WriteArchive(w io.Writer, snap Snapshot) error {
	zw := zip.NewWriter(w)

	meta, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal snapshot")
	}
	entries := []struct {
		name string
		data string
	}{
		{entrySnapshot, string(meta)},
		{entryDisplay, snap.Display},
		{entryMangled, snap.Mangled},
		{entryAnalyzer, snap.AnalyzerOutput},
		{entryCompiler, snap.CompilerOutput},
	}
	for _, e := range entries {
		if err := writeZipEntry(zw, e.name, []byte(e.data)); err != nil {
			return err
		}
	}
	return errors.Wrap(zw.Close(), "finish archive")
}

// ArchiveBytes is WriteArchive into memory.
func ArchiveBytes(snap Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteArchive(&buf, snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadArchive restores a snapshot written by WriteArchive. Only
// snapshot.json is required.
func ReadArchive(data []byte) (Snapshot, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "open zip")
	}
	fileMap := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		fileMap[f.Name] = f
	}

	meta, err := readZipEntry(fileMap, entrySnapshot)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(meta, &snap); err != nil {
		return Snapshot{}, errors.Wrap(err, "unmarshal snapshot")
	}

	for name, dst := range map[string]*string{
		entryDisplay:  &snap.Display,
		entryMangled:  &snap.Mangled,
		entryAnalyzer: &snap.AnalyzerOutput,
		entryCompiler: &snap.CompilerOutput,
	} {
		if d, err := readZipEntry(fileMap, name); err == nil {
			*dst = string(d)
		}
	}
	return snap, nil
}

// WriteArchiveFile writes the archive to path.
func WriteArchiveFile(path string, snap Snapshot) error {
	data, err := ArchiveBytes(snap)
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "writing %s", path)
}

// ReadArchiveFile reads an archive from path.
func ReadArchiveFile(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "reading archive")
	}
	return ReadArchive(data)
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return errors.Wrapf(err, "create zip entry %q", name)
	}
	_, err = w.Write(data)
	return errors.Wrapf(err, "write zip entry %q", name)
}

func readZipEntry(fileMap map[string]*zip.File, name string) ([]byte, error) {
	f, ok := fileMap[name]
	if !ok {
		return nil, errors.Errorf("zip entry %q not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "open zip entry %q", name)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
