package dvf

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DatasetNotFoundError means no regional file exists for the derived
// region key. The matcher converts it into a "data unavailable" result
// instead of propagating it.
type DatasetNotFoundError struct {
	Region string
}

func (e *DatasetNotFoundError) Error() string {
	return fmt.Sprintf("no dataset file for region %q", e.Region)
}

// RawTable is a regional dataset as read from disk: the original header
// row plus all data rows, before any schema normalization.
type RawTable struct {
	Header []string
	Rows   [][]string
}

// Loader locates and reads per-region DVF transaction files. Files are
// named by the 2-character region key, gzip-compressed or plain.
type Loader struct {
	dataDir string
	logger  *logrus.Logger
}

func NewLoader(dataDir string, logger *logrus.Logger) *Loader {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Loader{
		dataDir: dataDir,
		logger:  logger,
	}
}

// RegionKey derives the 2-character dataset key from a postal code:
// the first two characters of the zero-padded 5-digit form.
func RegionKey(postalCode string) (string, error) {
	code := strings.TrimSpace(postalCode)
	if code == "" {
		return "", fmt.Errorf("empty postal code")
	}
	for len(code) < 5 {
		code = "0" + code
	}
	return code[:2], nil
}

// Locate returns the path of the regional dataset file, preferring the
// compressed variant, along with its modification time.
func (l *Loader) Locate(region string) (string, time.Time, error) {
	candidates := []string{
		filepath.Join(l.dataDir, region+".csv.gz"),
		filepath.Join(l.dataDir, region+".csv"),
	}
	for _, path := range candidates {
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, info.ModTime(), nil
		}
	}
	return "", time.Time{}, &DatasetNotFoundError{Region: region}
}

// Load reads the regional dataset into memory with its original column
// headers. The header row's delimiter is sniffed among comma, semicolon
// and pipe since DVF releases are not consistent about it.
func (l *Loader) Load(region string) (*RawTable, error) {
	path, _, err := l.Locate(region)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", path, err)
	}
	defer file.Close()

	var reader io.Reader = file
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip dataset %s: %w", path, err)
		}
		defer gz.Close()
		reader = gz
	}

	table, err := readTable(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", path, err)
	}

	l.logger.WithFields(logrus.Fields{
		"region": region,
		"path":   path,
		"rows":   len(table.Rows),
	}).Info("Loaded regional dataset")

	return table, nil
}

func readTable(r io.Reader) (*RawTable, error) {
	buffered := newPeekReader(r)
	headerLine, err := buffered.PeekLine()
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	csvReader := csv.NewReader(buffered)
	csvReader.Comma = sniffDelimiter(headerLine)
	csvReader.FieldsPerRecord = -1
	csvReader.LazyQuotes = true

	header, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to parse header row: %w", err)
	}

	var rows [][]string
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed rows are dropped, never abort the whole load.
			continue
		}
		rows = append(rows, record)
	}

	return &RawTable{Header: header, Rows: rows}, nil
}

// sniffDelimiter picks the separator that occurs most often in the
// header line. DVF full exports use '|', the geolocated exports ','.
func sniffDelimiter(header string) rune {
	best := ','
	bestCount := strings.Count(header, ",")
	for _, candidate := range []rune{';', '|'} {
		if n := strings.Count(header, string(candidate)); n > bestCount {
			best = candidate
			bestCount = n
		}
	}
	return best
}
