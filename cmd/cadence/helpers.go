package main

import (
	"fmt"
	"strconv"
	"time"

	"cadence/internal/program"
)

func parseStageArg(value string) (int, error) {
	stage, err := strconv.Atoi(value)
	if err != nil || stage < 1 || stage > program.StageCount {
		return 0, fmt.Errorf("stage must be a number between 1 and %d, got %q", program.StageCount, value)
	}
	return stage, nil
}

func parseSlotArg(value string) (int, error) {
	slot, err := strconv.Atoi(value)
	if err != nil || slot < 1 || slot > program.SlotsPerStage {
		return 0, fmt.Errorf("slot must be a number between 1 and %d, got %q", program.SlotsPerStage, value)
	}
	return slot, nil
}

func displayTime(value *time.Time) string {
	if value == nil {
		return "-"
	}
	return value.Local().Format("2006-01-02 15:04")
}

func displayTimeValue(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.Local().Format("2006-01-02 15:04")
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
