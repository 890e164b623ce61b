package nn

import (
	"github.com/montanaflynn/stats"
)

// EpochStats records the loss/accuracy of one training epoch.
type EpochStats struct {
	Epoch         int     `json:"epoch"`
	TrainLoss     float64 `json:"train_loss"`
	TrainAccuracy float64 `json:"train_accuracy"`
	ValLoss       float64 `json:"val_loss"`
	ValAccuracy   float64 `json:"val_accuracy"`
}

// History is the full per-epoch training curve for both splits.
type History struct {
	Epochs []EpochStats `json:"epochs"`
}

// Summary condenses a training history for run records and logs.
type Summary struct {
	Epochs        int     `json:"epochs"`
	TrainLoss     float64 `json:"train_loss"` // final epoch
	TrainAccuracy float64 `json:"train_accuracy"`
	ValLoss       float64 `json:"val_loss"`
	ValAccuracy   float64 `json:"val_accuracy"`
	BestValAcc    float64 `json:"best_val_accuracy"`
	MeanTrainLoss float64 `json:"mean_train_loss"`
}

// Summary reports the final-epoch metrics plus curve aggregates.
func (h *History) Summary() Summary {
	if len(h.Epochs) == 0 {
		return Summary{}
	}

	final := h.Epochs[len(h.Epochs)-1]
	s := Summary{
		Epochs:        len(h.Epochs),
		TrainLoss:     final.TrainLoss,
		TrainAccuracy: final.TrainAccuracy,
		ValLoss:       final.ValLoss,
		ValAccuracy:   final.ValAccuracy,
	}

	valAccs := make([]float64, len(h.Epochs))
	trainLosses := make([]float64, len(h.Epochs))
	for i, e := range h.Epochs {
		valAccs[i] = e.ValAccuracy
		trainLosses[i] = e.TrainLoss
	}

	s.BestValAcc, _ = stats.Max(valAccs)
	s.MeanTrainLoss, _ = stats.Mean(trainLosses)
	return s
}
