package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/dataset"
	"github.com/ayusman/mudra/internal/landmark"
)

// Sample represents a labeled hand observation stored in the database.
type Sample struct {
	ID         int64           `json:"id"`
	Label      string          `json:"label"`
	Handedness int             `json:"handedness"`
	Landmarks  json.RawMessage `json:"landmarks"`
	Source     string          `json:"source"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ToDataset decodes the landmark JSON into a training sample.
func (s *Sample) ToDataset() (dataset.Sample, error) {
	out := dataset.Sample{Label: s.Label, Handedness: s.Handedness}

	var points []landmark.Point3D
	if err := json.Unmarshal(s.Landmarks, &points); err != nil {
		return out, fmt.Errorf("sample %d: decode landmarks: %w", s.ID, err)
	}
	if len(points) != landmark.NumLandmarks {
		return out, fmt.Errorf("sample %d: got %d landmarks, want %d",
			s.ID, len(points), landmark.NumLandmarks)
	}

	copy(out.Points[:], points)
	return out, nil
}

// SampleRepository provides CRUD operations for training samples.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Create inserts multiple samples in a single transaction.
// The source tag records where a batch came from (e.g. the CSV filename).
func (r *SampleRepository) Create(samples []dataset.Sample, source string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO samples (class_label, handedness, landmarks, source) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range samples {
		landmarks, err := json.Marshal(samples[i].Points[:])
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(samples[i].Label, samples[i].Handedness, string(landmarks), source); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// List retrieves all stored samples in insertion order.
func (r *SampleRepository) List() ([]Sample, error) {
	rows, err := r.db.Query(
		`SELECT id, class_label, handedness, landmarks, source, created_at
		 FROM samples ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var s Sample
		var landmarks string
		if err := rows.Scan(&s.ID, &s.Label, &s.Handedness, &landmarks, &s.Source, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Landmarks = json.RawMessage(landmarks)
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// ListDataset retrieves all stored samples decoded for training.
func (r *SampleRepository) ListDataset() ([]dataset.Sample, error) {
	stored, err := r.List()
	if err != nil {
		return nil, err
	}

	samples := make([]dataset.Sample, 0, len(stored))
	for i := range stored {
		s, err := stored[i].ToDataset()
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, nil
}

// CountByClass returns the number of stored samples per class label.
func (r *SampleRepository) CountByClass() (map[string]int, error) {
	rows, err := r.db.Query(
		`SELECT class_label, COUNT(*) FROM samples GROUP BY class_label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var label string
		var count int
		if err := rows.Scan(&label, &count); err != nil {
			return nil, err
		}
		counts[label] = count
	}

	return counts, rows.Err()
}

// DeleteByClass removes all samples with the given class label.
func (r *SampleRepository) DeleteByClass(label string) error {
	_, err := r.db.Exec(`DELETE FROM samples WHERE class_label = ?`, label)
	return err
}
