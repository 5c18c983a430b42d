// CLAUDE:SUMMARY Writes the links of each finished run to youtube_links.txt and youtube_links.docx, replacing the previous files atomically.
package sink

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hazyhaar/vidharvest/harvest/outcome"
)

const (
	// TextName and DocxName are the fixed result file names.
	TextName = "youtube_links.txt"
	DocxName = "youtube_links.docx"
)

// TextFile rewrites Dir/youtube_links.txt with one link per line.
type TextFile struct {
	Dir string
}

// NewTextFile creates a TextFile sink writing into dir.
func NewTextFile(dir string) *TextFile { return &TextFile{Dir: dir} }

// Path returns the file the sink writes.
func (t *TextFile) Path() string { return filepath.Join(t.Dir, TextName) }

func (t *TextFile) Send(_ context.Context, run outcome.RunOutcome) error {
	body := strings.Join(run.LinkStrings(), "\n")
	if err := writeAtomic(t.Path(), []byte(body)); err != nil {
		return fmt.Errorf("sink: text file: %w", err)
	}
	return nil
}

func (t *TextFile) Close() error { return nil }

// DocxFile rewrites Dir/youtube_links.docx with one paragraph per link.
type DocxFile struct {
	Dir string
}

// NewDocxFile creates a DocxFile sink writing into dir.
func NewDocxFile(dir string) *DocxFile { return &DocxFile{Dir: dir} }

// Path returns the file the sink writes.
func (d *DocxFile) Path() string { return filepath.Join(d.Dir, DocxName) }

func (d *DocxFile) Send(_ context.Context, run outcome.RunOutcome) error {
	var buf bytes.Buffer
	if err := WriteDocx(&buf, "", run.LinkStrings()); err != nil {
		return fmt.Errorf("sink: docx file: %w", err)
	}
	if err := writeAtomic(d.Path(), buf.Bytes()); err != nil {
		return fmt.Errorf("sink: docx file: %w", err)
	}
	return nil
}

func (d *DocxFile) Close() error { return nil }

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
