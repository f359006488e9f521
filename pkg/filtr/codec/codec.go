// Package codec loads datasets from CSV, JSON, YAML and Markdown files and
// from database tables, and writes them back out as CSV, JSON, Markdown or
// SQLite.
//
// Files ending in .gz are decompressed transparently and a leading UTF-8
// byte order mark is dropped before parsing. Every imported table starts
// with the filtrID column holding the 1-based load order of each row,
// unless the source already carries one.
package codec

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/sambeau/filtr/log"
	perrors "github.com/sambeau/filtr/pkg/filtr/errors"
	"github.com/sambeau/filtr/pkg/filtr/object"
)

// Options control import and export.
type Options struct {
	// Logger receives import and export diagnostics. The zero value uses
	// the package-level logger.
	Logger log.Logger

	// InferDates turns cells shaped like YYYY-MM-DD into dates.
	InferDates bool

	// JSONStrings writes every JSON value as a string, with null as "".
	JSONStrings bool

	// CreateDirs creates a missing export directory.
	CreateDirs bool
}

// DefaultOptions returns the options used when no configuration is loaded.
func DefaultOptions() Options {
	return Options{InferDates: true}
}

func (o Options) logger() log.Logger {
	if o.Logger.Logger == nil {
		return log.Default()
	}
	return o.Logger
}

// Import reads the dataset at path. Database sources (see parseSQLSource)
// are read with database/sql. Files are read by extension: .csv, .json,
// .yaml, .yml, .md or .markdown, optionally followed by .gz.
func Import(path string, opts Options) (*object.Table, error) {
	if src, ok := parseSQLSource(path); ok {
		t, err := ReadSQL(src, opts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		opts.logger().Info("dataset imported",
			slog.String("path", path),
			slog.String("driver", src.driver),
			slog.Int("rows", t.Len()),
			slog.Int("columns", len(t.Columns())))
		return t, nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	compressed := ext == ".gz"
	if compressed {
		ext = strings.ToLower(filepath.Ext(strings.TrimSuffix(path, filepath.Ext(path))))
	}

	var read func(io.Reader, Options) (*object.Table, error)
	switch ext {
	case ".csv":
		read = ReadCSV
	case ".json":
		read = ReadJSON
	case ".yaml", ".yml":
		read = ReadYAML
	case ".md", ".markdown":
		read = ReadMarkdown
	default:
		return nil, perrors.New("FORMAT-0002", map[string]any{"Ext": ext})
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if compressed {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}
	r = transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	t, err := read(r, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	attrs := []slog.Attr{
		slog.String("path", path),
		slog.Int("rows", t.Len()),
		slog.Int("columns", len(t.Columns())),
	}
	if info, err := f.Stat(); err == nil {
		attrs = append(attrs, slog.String("size", humanize.Bytes(uint64(info.Size()))))
	}
	opts.logger().Info("dataset imported", attrs...)
	return t, nil
}

// exportExts maps export formats to file extensions.
var exportExts = map[string]string{
	"csv":    "csv",
	"json":   "json",
	"md":     "md",
	"sqlite": "db",
}

// Export writes t to dir/filtr<alias>.<ext> and returns the path written.
// Format is "csv", "json", "md" or "sqlite"; a sqlite export writes the
// table named alias into filtr<alias>.db.
func Export(t *object.Table, dir, alias, format string, opts Options) (string, error) {
	ext, ok := exportExts[format]
	if !ok {
		return "", perrors.New("FORMAT-0001", map[string]any{"Format": format})
	}

	if opts.CreateDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}

	path := filepath.Join(dir, "filtr"+alias+"."+ext)
	opts.logger().Info("exporting dataset", slog.String("path", path))

	var size int64
	if format == "sqlite" {
		if err := WriteSQLite(path, alias, t); err != nil {
			return "", err
		}
		if info, err := os.Stat(path); err == nil {
			size = info.Size()
		}
	} else {
		n, err := writeFile(path, t, format, opts)
		if err != nil {
			return "", err
		}
		size = n
	}

	opts.logger().Debug("dataset exported",
		slog.String("path", path),
		slog.Int("rows", t.Len()),
		slog.String("size", humanize.Bytes(uint64(size))))
	return path, nil
}

func writeFile(path string, t *object.Table, format string, opts Options) (int64, error) {
	var write func(io.Writer, *object.Table, Options) error
	switch format {
	case "csv":
		write = WriteCSV
	case "json":
		write = WriteJSON
	case "md":
		write = WriteMarkdown
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	cw := &countingWriter{w: f}
	if err := write(cw, t, opts); err != nil {
		f.Close()
		return 0, err
	}
	return cw.n, f.Close()
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// newTable builds a table from rows keyed by column name. The filtrID
// column is prepended unless columns already include it.
func newTable(columns []string, rows []map[string]object.Object) (*object.Table, error) {
	withID := !slices.Contains(columns, object.IDColumn)
	all := columns
	if withID {
		all = append([]string{object.IDColumn}, columns...)
	}

	t, err := object.NewTable(all)
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		values := make([]object.Object, 0, len(all))
		if withID {
			values = append(values, &object.Integer{Value: int64(i + 1)})
		}
		for _, c := range columns {
			values = append(values, row[c])
		}
		if err := t.AppendRow(values); err != nil {
			return nil, err
		}
	}
	return t, nil
}
