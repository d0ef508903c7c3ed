package training

// History accumulates loss and accuracy curves across a run. All sequences
// are append-only and never truncated: one entry per epoch for the training
// series, one entry per validation pass for the validation series.
type History struct {
	TrainLoss     []float64
	TrainAccuracy []float64

	ValLoss     []float64
	ValAccuracy []float64
	ValEpochs   []int // epoch index of each validation pass
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{}
}

// RecordEpoch appends one epoch's mean training loss and accuracy.
func (h *History) RecordEpoch(loss, accuracy float64) {
	h.TrainLoss = append(h.TrainLoss, loss)
	h.TrainAccuracy = append(h.TrainAccuracy, accuracy)
}

// RecordValidation appends one validation pass's results.
func (h *History) RecordValidation(epoch int, loss, accuracy float64) {
	h.ValEpochs = append(h.ValEpochs, epoch)
	h.ValLoss = append(h.ValLoss, loss)
	h.ValAccuracy = append(h.ValAccuracy, accuracy)
}

// Epochs returns the number of completed training epochs.
func (h *History) Epochs() int {
	return len(h.TrainLoss)
}

// Validations returns the number of completed validation passes.
func (h *History) Validations() int {
	return len(h.ValLoss)
}
