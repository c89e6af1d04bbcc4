package catalog

import (
	"bufio"
	"context"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/glorpus-work/apkpick/pkg/errors"
	"github.com/mholt/archives"
)

// Scanner streams Records out of a catalog, one data row at a time.
type Scanner struct {
	reader  *csv.Reader
	lines   *lineRecorder
	counter *countingReader
	closers []io.Closer
	size    int64

	pkgCol int
	verCol int // -1 when the catalog has no vercode column
	shaCol int
	minLen int
	// missing names required columns absent from the header. Every data row
	// of such a catalog is a row error.
	missing []string

	rows int
}

// NewScanner reads the header row from r and prepares to scan the data rows.
// Only a catalog without any header row is rejected. A header lacking pkg_name
// or sha256 turns each data row into a row error.
func NewScanner(r io.Reader) (*Scanner, error) {
	counter := &countingReader{r: r}
	lines := newLineRecorder(counter)
	reader := csv.NewReader(lines)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	lines.Take()
	if err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, errors.Categorize(errors.ErrIO, errors.ErrCatalogHeader)
		}
		return nil, errors.Categorize(errors.ErrIO, errors.Wrap(err, "failed to read catalog header"))
	}

	s := &Scanner{reader: reader, lines: lines, counter: counter, pkgCol: -1, verCol: -1, shaCol: -1}
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		switch {
		case name == ColumnPackageName && s.pkgCol < 0:
			s.pkgCol = i
		case name == ColumnVersionCode && s.verCol < 0:
			s.verCol = i
		case name == ColumnSHA256 && s.shaCol < 0:
			s.shaCol = i
		}
	}
	if s.pkgCol < 0 {
		s.missing = append(s.missing, ColumnPackageName)
	}
	if s.shaCol < 0 {
		s.missing = append(s.missing, ColumnSHA256)
	}
	s.minLen = max(s.pkgCol, s.shaCol) + 1
	return s, nil
}

// OpenScanner opens the catalog at path. Compressed catalogs (gzip, xz, zstd,
// bzip2, ...) are decompressed on the fly; archive formats are rejected.
func OpenScanner(ctx context.Context, path string) (*Scanner, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Categorize(errors.ErrIO, errors.Wrapf(err, "failed to open catalog %s", path))
	}

	var size int64
	if st, err := file.Stat(); err == nil {
		size = st.Size()
	}

	// The progress counter sits on the raw file so BytesRead lines up with Size.
	raw := &countingReader{r: file}
	stream, closer, err := decompress(ctx, path, file, raw)
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	s, err := NewScanner(stream)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		_ = file.Close()
		return nil, errors.Wrapf(err, "catalog %s", path)
	}
	s.counter = raw
	s.size = size
	if closer != nil {
		s.closers = append(s.closers, closer)
	}
	s.closers = append(s.closers, file)
	return s, nil
}

func decompress(ctx context.Context, path string, file *os.File, raw io.Reader) (io.Reader, io.Closer, error) {
	format, _, err := archives.Identify(ctx, path, file)
	if _, seekErr := file.Seek(0, io.SeekStart); seekErr != nil {
		return nil, nil, errors.Categorize(errors.ErrIO, errors.Wrap(seekErr, "failed to rewind catalog"))
	}
	if err != nil {
		if stderrors.Is(err, archives.NoMatch) {
			return raw, nil, nil
		}
		return nil, nil, errors.Categorize(errors.ErrIO, errors.Wrap(err, "failed to identify catalog format"))
	}

	if _, isArchive := format.(archives.Extractor); isArchive {
		return nil, nil, errors.Categorize(errors.ErrIO, fmt.Errorf("%w: %s is an archive, not a catalog", errors.ErrUnsupportedCatalog, path))
	}
	dec, ok := format.(archives.Decompressor)
	if !ok {
		return nil, nil, errors.Categorize(errors.ErrIO, fmt.Errorf("%w: %s", errors.ErrUnsupportedCatalog, path))
	}
	rc, err := dec.OpenReader(raw)
	if err != nil {
		return nil, nil, errors.Categorize(errors.ErrIO, errors.Wrap(err, "failed to open decompressor"))
	}
	return rc, rc, nil
}

// Next returns the next record. It returns io.EOF after the last row and a
// *RowParseError for a row that cannot be parsed; any other error is fatal.
func (s *Scanner) Next() (Record, error) {
	fields, err := s.reader.Read()
	raw := s.lines.Take()
	if err != nil {
		if stderrors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		var parseErr *csv.ParseError
		if stderrors.As(err, &parseErr) {
			s.rows++
			return Record{}, &RowParseError{Line: parseErr.StartLine, Raw: []string{raw}, Cause: parseErr.Err.Error()}
		}
		return Record{}, errors.Categorize(errors.ErrIO, errors.Wrap(err, "failed to read catalog"))
	}
	s.rows++

	line, _ := s.reader.FieldPos(0)
	rowErr := func(cause string) error {
		return &RowParseError{Line: line, Raw: fields, Cause: cause}
	}

	if len(s.missing) > 0 {
		return Record{}, rowErr("missing column " + strings.Join(s.missing, ", "))
	}
	if len(fields) < s.minLen {
		return Record{}, rowErr(fmt.Sprintf("expected at least %d fields, got %d", s.minLen, len(fields)))
	}

	rec := Record{
		PackageName: strings.TrimSpace(fields[s.pkgCol]),
		SHA256:      strings.TrimSpace(fields[s.shaCol]),
	}
	if rec.PackageName == "" {
		return Record{}, rowErr("missing " + ColumnPackageName)
	}
	if rec.SHA256 == "" {
		return Record{}, rowErr("missing " + ColumnSHA256)
	}
	if s.verCol >= 0 && s.verCol < len(fields) {
		v, err := parseVersionCode(fields[s.verCol])
		if err != nil {
			return Record{}, rowErr(err.Error())
		}
		rec.VersionCode = v
	}
	return rec, nil
}

// Rows returns the number of data rows consumed so far, including bad ones.
func (s *Scanner) Rows() int {
	return s.rows
}

// BytesRead returns how many bytes of the underlying file have been consumed.
func (s *Scanner) BytesRead() int64 {
	return s.counter.n
}

// Size returns the size of the underlying file, or 0 when unknown.
func (s *Scanner) Size() int64 {
	return s.size
}

// Close releases the file and any decompressor.
func (s *Scanner) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return stderrors.Join(errs...)
}

// maxRawLine caps how much of a row is kept for error reports.
const maxRawLine = 4096

// lineRecorder feeds the csv reader at most one line per Read and keeps the
// text handed out since the last Take. The csv reader only asks for more input
// once its buffered line is consumed, so the kept text is exactly the current row.
type lineRecorder struct {
	src     *bufio.Reader
	pending []byte
	taken   []byte
}

func newLineRecorder(r io.Reader) *lineRecorder {
	return &lineRecorder{src: bufio.NewReader(r)}
}

func (l *lineRecorder) Read(p []byte) (int, error) {
	if len(l.pending) == 0 {
		line, err := l.src.ReadSlice('\n')
		if len(line) == 0 {
			return 0, err
		}
		l.pending = line
	}
	n := copy(p, l.pending)
	l.pending = l.pending[n:]
	if room := maxRawLine - len(l.taken); room > 0 {
		l.taken = append(l.taken, p[:min(n, room)]...)
	}
	return n, nil
}

// Take returns the text recorded since the previous call, without the line ending.
func (l *lineRecorder) Take() string {
	raw := strings.TrimRight(string(l.taken), "\r\n")
	l.taken = l.taken[:0]
	return raw
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
