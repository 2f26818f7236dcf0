package program

import "fmt"

// ValidateStage checks a stage number against the program bounds.
func ValidateStage(stage int) error {
	if stage < 1 || stage > StageCount {
		return fmt.Errorf("stage %d out of range 1..%d", stage, StageCount)
	}
	return nil
}

// ValidateSlot checks a slot number against the per-stage bounds.
func ValidateSlot(slot int) error {
	if slot < 1 || slot > SlotsPerStage {
		return fmt.Errorf("slot %d out of range 1..%d", slot, SlotsPerStage)
	}
	return nil
}

// CompletedStages derives the ordered list of completed stage numbers.
func CompletedStages(records []StageRecord) []int {
	completed := make([]int, 0, len(records))
	for _, record := range records {
		if record.Status == StageCompleted {
			completed = append(completed, record.Stage)
		}
	}
	return completed
}
