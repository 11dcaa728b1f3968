package source

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FileExtensions are the flat-text, delimited and dump formats accepted
// for file scans
var FileExtensions = []string{".csv", ".sql", ".txt"}

// MaxLineBytes bounds a single line of a scanned file
const MaxLineBytes = 16 << 20

// File streams a local file line by line
type File struct {
	path string
	name string
	temp bool
}

// NewFile creates a file source. The extension is validated before the
// file is touched.
func NewFile(path string) (*File, error) {
	if !hasExtension(path, FileExtensions) {
		return nil, &ValidationError{
			Target:  filepath.Base(path),
			Message: "unsupported file type, only CSV, SQL or TXT allowed",
		}
	}

	return &File{path: path, name: filepath.Base(path)}, nil
}

// SpoolUpload copies an uploaded stream into a temporary file under dir and
// returns a source for it. The copy is removed by Close, or immediately if
// spooling fails.
func SpoolUpload(dir, filename string, r io.Reader) (*File, error) {
	name := filepath.Base(filename)
	if !hasExtension(name, FileExtensions) {
		return nil, &ValidationError{
			Target:  name,
			Message: "unsupported file type, only CSV, SQL or TXT allowed",
		}
	}

	tmp, err := os.CreateTemp(dir, "upload-*"+strings.ToLower(filepath.Ext(name)))
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	f := &File{path: tmp.Name(), name: name, temp: true}

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		f.Close()
		return nil, fmt.Errorf("failed to spool upload: %w", err)
	}

	if err := tmp.Close(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to spool upload: %w", err)
	}

	return f, nil
}

// Name returns the file's base name
func (f *File) Name() string {
	return f.name
}

// Path returns the path being read
func (f *File) Path() string {
	return f.path
}

// Units yields one unit per line labelled with its 1-based line number
func (f *File) Units(ctx context.Context) iter.Seq2[TextUnit, error] {
	return func(yield func(TextUnit, error) bool) {
		file, err := os.Open(f.path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				yield(TextUnit{}, &NotFoundError{Target: f.name, Message: "file does not exist"})
				return
			}
			yield(TextUnit{}, fmt.Errorf("failed to open file: %w", err))
			return
		}
		defer file.Close()

		scanner := bufio.NewScanner(file)
		scanner.Buffer(make([]byte, 0, 64*1024), MaxLineBytes)
		scanner.Split(scanLines)
		lineNumber := 0

		for {
			if err := ctx.Err(); err != nil {
				yield(TextUnit{}, err)
				return
			}

			if !scanner.Scan() {
				break
			}

			lineNumber++
			unit := TextUnit{
				Text:     decodeLossy(scanner.Text()),
				Location: strconv.Itoa(lineNumber),
			}
			if !yield(unit, nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield(TextUnit{}, fmt.Errorf("failed to read line %d: %w", lineNumber+1, err))
		}
	}
}

// scanLines is a bufio.SplitFunc that ends lines on \n, \r\n or a lone \r.
// A final line without a terminator is returned; a trailing terminator
// does not produce an empty line.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}
		// A \r at the end of the buffer may be the start of \r\n
		return 0, nil, nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Close removes the temporary copy of an upload. It is a no-op for files
// that were not spooled and safe to call more than once.
func (f *File) Close() error {
	if !f.temp {
		return nil
	}

	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove temp file: %w", err)
	}
	return nil
}
