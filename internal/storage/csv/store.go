// Package csvstore persists domain tables as two-column CSV files.
package csvstore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/JakeFAU/bounty-scope-crawler/internal/crawler"
)

var header = []string{"domain", "url"}

// Store reads and writes the domain,url CSV schema.
type Store struct{}

// New returns a Store.
func New() *Store {
	return &Store{}
}

// Save overwrites path with a header row followed by the table sorted by
// domain. The file is written next to path and renamed into place.
func (s *Store) Save(table *crawler.DomainTable, path string) error {
	if path == "" {
		return fmt.Errorf("path is required")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.partial")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := writeTable(tmp, table); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file for %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

func writeTable(w io.Writer, table *crawler.DomainTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if table != nil {
		for _, rec := range table.Records() {
			if err := cw.Write([]string{rec.Domain, rec.SourceURL}); err != nil {
				return fmt.Errorf("write row %s: %w", rec.Domain, err)
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// Load reads a file written by Save. The first physical row is skipped as the
// header; malformed rows and rows with fewer than two columns are ignored. A
// missing file yields an empty table; any other failure yields an empty table
// and the error.
func (s *Store) Load(path string) (*crawler.DomainTable, error) {
	table := crawler.NewDomainTable()
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return table, nil
		}
		return table, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	records, err := readRecords(f)
	if err != nil {
		return crawler.NewDomainTable(), fmt.Errorf("read %s: %w", path, err)
	}
	table.Merge(records...)
	return table, nil
}

func readRecords(r io.Reader) ([]crawler.DomainRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	// The first physical row is the header, even when it does not parse.
	if _, err := cr.Read(); err != nil && !isParseError(err) {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}

	var out []crawler.DomainRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			if isParseError(err) {
				continue
			}
			return nil, err
		}
		if len(row) < 2 {
			continue
		}
		out = append(out, crawler.DomainRecord{Domain: row[0], SourceURL: row[1]})
	}
}

func isParseError(err error) bool {
	var parseErr *csv.ParseError
	return errors.As(err, &parseErr)
}

// CheckpointPath returns the sibling checkpoint file for output.
func CheckpointPath(output, suffix string) string {
	return output + suffix
}
