package predict

// PlanBatches splits totalRows into consecutive ranges of batchSize rows; the
// last range takes the remainder. Zero rows give zero batches.
func PlanBatches(totalRows, batchSize int) []BatchRange {
	if totalRows <= 0 || batchSize <= 0 {
		return []BatchRange{}
	}
	numBatches := (totalRows + batchSize - 1) / batchSize
	batches := make([]BatchRange, numBatches)

	for i := 0; i < totalRows; i += batchSize {
		end := i + batchSize
		if end > totalRows {
			end = totalRows
		}
		batches[i/batchSize] = BatchRange{Start: i, End: end}
	}
	return batches
}
