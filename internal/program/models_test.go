package program

import "testing"

func TestParseDocumentStatus(t *testing.T) {
	cases := []struct {
		input string
		want  DocumentStatus
		ok    bool
	}{
		{"approved", DocApproved, true},
		{" Sent ", DocSent, true},
		{"REVISION-REQUESTED", DocRevisionRequested, true},
		{"not-generated", DocNotGenerated, true},
		{"draft", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseDocumentStatus(tc.input)
		if ok != tc.ok {
			t.Errorf("ParseDocumentStatus(%q) ok = %v, want %v", tc.input, ok, tc.ok)
			continue
		}
		if ok && got != tc.want {
			t.Errorf("ParseDocumentStatus(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestParseStageStatus(t *testing.T) {
	if got, ok := ParseStageStatus(" Active "); !ok || got != StageActive {
		t.Errorf("ParseStageStatus(Active) = %q, %v", got, ok)
	}
	if _, ok := ParseStageStatus("open"); ok {
		t.Error("ParseStageStatus accepted unknown status")
	}
}

func TestReviewable(t *testing.T) {
	reviewable := []DocumentStatus{DocGenerated, DocSent, DocViewed, DocRevisionRequested}
	for _, status := range reviewable {
		if !status.Reviewable() {
			t.Errorf("%q should be reviewable", status)
		}
	}
	for _, status := range []DocumentStatus{DocNotGenerated, DocApproved} {
		if status.Reviewable() {
			t.Errorf("%q should not be reviewable", status)
		}
	}
}

func TestSubscriptionMatches(t *testing.T) {
	cases := []struct {
		name   string
		events []string
		event  string
		want   bool
	}{
		{"empty list matches all", nil, "stage.completed", true},
		{"wildcard matches all", []string{"*"}, "document.approved", true},
		{"exact match", []string{"stage.completed"}, "stage.completed", true},
		{"case insensitive", []string{"Stage.Completed"}, "stage.completed", true},
		{"no match", []string{"stage.completed"}, "document.approved", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sub := WebhookSubscription{Events: tc.events}
			if got := sub.Matches(tc.event); got != tc.want {
				t.Errorf("Matches(%q) = %v, want %v", tc.event, got, tc.want)
			}
		})
	}
}

func TestSlotNameBounds(t *testing.T) {
	if name := SlotName(1, 1); name != "Brand Vision & Mission" {
		t.Errorf("SlotName(1,1) = %q", name)
	}
	if name := SlotName(StageCount, SlotsPerStage); name == "" {
		t.Error("last slot has no name")
	}
	for _, position := range [][2]int{{0, 1}, {1, 0}, {StageCount + 1, 1}, {1, SlotsPerStage + 1}} {
		if name := SlotName(position[0], position[1]); name != "" {
			t.Errorf("SlotName(%d,%d) = %q, want empty", position[0], position[1], name)
		}
	}

	// Every position carries a distinct deliverable name.
	seen := make(map[string]bool)
	for stage := 1; stage <= StageCount; stage++ {
		for slot := 1; slot <= SlotsPerStage; slot++ {
			name := SlotName(stage, slot)
			if name == "" {
				t.Fatalf("SlotName(%d,%d) empty", stage, slot)
			}
			if seen[name] {
				t.Errorf("duplicate slot name %q", name)
			}
			seen[name] = true
		}
	}
}

func TestValidateStageAndSlot(t *testing.T) {
	if err := ValidateStage(1); err != nil {
		t.Errorf("ValidateStage(1): %v", err)
	}
	if err := ValidateStage(StageCount + 1); err == nil {
		t.Error("ValidateStage accepted out-of-range stage")
	}
	if err := ValidateSlot(SlotsPerStage); err != nil {
		t.Errorf("ValidateSlot(%d): %v", SlotsPerStage, err)
	}
	if err := ValidateSlot(0); err == nil {
		t.Error("ValidateSlot accepted zero")
	}
}

func TestCompletedStages(t *testing.T) {
	records := []StageRecord{
		{Stage: 1, Status: StageCompleted},
		{Stage: 2, Status: StageCompleted},
		{Stage: 3, Status: StageActive},
		{Stage: 4, Status: StageLocked},
	}
	got := CompletedStages(records)
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("CompletedStages = %v, want [1 2]", got)
	}
}
