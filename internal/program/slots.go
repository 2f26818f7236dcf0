package program

// slotNames holds the default deliverable name for every (stage, slot)
// position. Stage themes follow the program curriculum: foundation,
// positioning, offer design, go-to-market, marketing, operations, finance,
// and launch.
var slotNames = [StageCount][SlotsPerStage]string{
	{
		"Brand Vision & Mission",
		"Founder Story",
		"Market Analysis",
		"Target Audience Personas",
		"Competitive Landscape",
	},
	{
		"Unique Value Proposition",
		"Brand Strategy",
		"Messaging Framework",
		"Identity Brief",
		"Positioning Statement",
	},
	{
		"Product & Service Offering",
		"Pricing Strategy",
		"Offer Ladder",
		"Delivery Blueprint",
		"Validation Plan",
	},
	{
		"Launch Strategy",
		"Channel Plan",
		"Content Calendar",
		"Partnership Outreach",
		"Sales Playbook",
	},
	{
		"Marketing Plan",
		"Email Sequences",
		"Social Campaigns",
		"Community Plan",
		"PR & Influencer Brief",
	},
	{
		"Operations Manual",
		"Tech Stack Blueprint",
		"Team & Hiring Plan",
		"Process Library",
		"Quality Checklist",
	},
	{
		"Financial Projections",
		"Unit Economics",
		"Budget Plan",
		"Funding Strategy",
		"KPI Dashboard Spec",
	},
	{
		"Launch Roadmap",
		"Risk & Mitigation Plan",
		"90-Day Growth Plan",
		"Retention Strategy",
		"Investor One-Pager",
	},
}

// SlotName returns the default deliverable name for a stage/slot position.
// Out-of-range positions return the empty string; validate first.
func SlotName(stage, slot int) string {
	if ValidateStage(stage) != nil || ValidateSlot(slot) != nil {
		return ""
	}
	return slotNames[stage-1][slot-1]
}
