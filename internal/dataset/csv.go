package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ayusman/mudra/internal/landmark"
	"github.com/sirupsen/logrus"
)

// ErrBadRecord is returned for CSV rows that cannot be parsed into a
// sample: wrong column count, non-numeric handedness, or malformed
// coordinate triples.
var ErrBadRecord = errors.New("dataset: bad record")

// recordLen is label + handedness + one column per landmark.
const recordLen = 2 + landmark.NumLandmarks

// ReadCSV parses samples from a CSV stream. Each row is
// label,handedness followed by 21 stringified "[x, y, z]" triples.
// Malformed rows abort the read with a wrapped ErrBadRecord so bad
// data is caught at import time instead of silently skewing training.
func ReadCSV(r io.Reader) ([]Sample, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // validated per row below

	var samples []Sample
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadRecord, line, err)
		}

		sample, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadRecord, line, err)
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

// ReadCSVFile reads all samples from a single CSV file.
func ReadCSVFile(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	samples, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return samples, nil
}

// ReadCSVDir loads every .csv file in dir (one file per class by
// convention, though the label column is authoritative).
func ReadCSVDir(dir string) ([]Sample, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var samples []Sample
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}

		fileSamples, err := ReadCSVFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		logrus.Debugf("dataset: %s: %d samples", entry.Name(), len(fileSamples))
		samples = append(samples, fileSamples...)
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("dataset: no samples found in %s", dir)
	}
	return samples, nil
}

func parseRecord(record []string) (Sample, error) {
	var sample Sample

	if len(record) != recordLen {
		return sample, fmt.Errorf("got %d columns, want %d", len(record), recordLen)
	}

	sample.Label = strings.TrimSpace(record[0])
	if sample.Label == "" {
		return sample, errors.New("empty label")
	}

	handedness, err := strconv.Atoi(strings.TrimSpace(record[1]))
	if err != nil || (handedness != 0 && handedness != 1) {
		return sample, fmt.Errorf("invalid handedness %q", record[1])
	}
	sample.Handedness = handedness

	for i := 0; i < landmark.NumLandmarks; i++ {
		point, err := parseTriple(record[2+i])
		if err != nil {
			return sample, fmt.Errorf("landmark %d: %v", i, err)
		}
		sample.Points[i] = point
	}

	return sample, nil
}

// parseTriple parses a "[x, y, z]" coordinate string.
func parseTriple(s string) (landmark.Point3D, error) {
	var p landmark.Point3D

	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return p, fmt.Errorf("missing brackets in %q", s)
	}

	parts := strings.Split(s[1:len(s)-1], ",")
	if len(parts) != 3 {
		return p, fmt.Errorf("got %d components, want 3", len(parts))
	}

	coords := make([]float64, 3)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return p, fmt.Errorf("component %d: %v", i, err)
		}
		coords[i] = v
	}

	p.X, p.Y, p.Z = coords[0], coords[1], coords[2]
	return p, nil
}
