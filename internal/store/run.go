package store

import (
	"database/sql"
	"errors"
	"time"
)

// Run represents a completed training run and its final metrics.
type Run struct {
	ID            string    `json:"id"`
	Epochs        int       `json:"epochs"`
	BatchSize     int       `json:"batch_size"`
	TrainLoss     float64   `json:"train_loss"`
	TrainAccuracy float64   `json:"train_accuracy"`
	ValLoss       float64   `json:"val_loss"`
	ValAccuracy   float64   `json:"val_accuracy"`
	ModelPath     string    `json:"model_path"`
	CreatedAt     time.Time `json:"created_at"`
}

// RunRepository provides CRUD operations for training runs.
type RunRepository struct {
	db *sql.DB
}

// Runs returns the run repository for this store.
func (s *Store) Runs() *RunRepository {
	return &RunRepository{db: s.db}
}

// Create inserts a new run record.
func (r *RunRepository) Create(run *Run) error {
	run.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO runs (id, epochs, batch_size, train_loss, train_accuracy,
		                   val_loss, val_accuracy, model_path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Epochs, run.BatchSize, run.TrainLoss, run.TrainAccuracy,
		run.ValLoss, run.ValAccuracy, run.ModelPath, run.CreatedAt,
	)
	return err
}

// GetByID retrieves a run by its ID.
func (r *RunRepository) GetByID(id string) (*Run, error) {
	run := &Run{}

	err := r.db.QueryRow(
		`SELECT id, epochs, batch_size, train_loss, train_accuracy,
		        val_loss, val_accuracy, model_path, created_at
		 FROM runs WHERE id = ?`,
		id,
	).Scan(&run.ID, &run.Epochs, &run.BatchSize, &run.TrainLoss, &run.TrainAccuracy,
		&run.ValLoss, &run.ValAccuracy, &run.ModelPath, &run.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return run, nil
}

// List retrieves all runs, most recent first.
func (r *RunRepository) List() ([]*Run, error) {
	rows, err := r.db.Query(
		`SELECT id, epochs, batch_size, train_loss, train_accuracy,
		        val_loss, val_accuracy, model_path, created_at
		 FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		err := rows.Scan(&run.ID, &run.Epochs, &run.BatchSize, &run.TrainLoss, &run.TrainAccuracy,
			&run.ValLoss, &run.ValAccuracy, &run.ModelPath, &run.CreatedAt)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}
