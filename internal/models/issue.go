package models

import "time"

// EquipmentType identifies the fixture an issue is about.
type EquipmentType string

const (
	EquipmentGeneral    EquipmentType = "general"
	EquipmentComputers  EquipmentType = "computers"
	EquipmentLights     EquipmentType = "lights"
	EquipmentFans       EquipmentType = "fans"
	EquipmentSmartBoard EquipmentType = "smartBoard"
)

// IssueStatus tracks the issue lifecycle. Resolved is terminal.
type IssueStatus string

const (
	IssueStatusOpen     IssueStatus = "open"
	IssueStatusResolved IssueStatus = "resolved"
)

// Issue is a fault report against a lab.
type Issue struct {
	ID            string        `db:"id" json:"id"`
	LabID         string        `db:"lab_id" json:"labId"`
	ReportedBy    string        `db:"reported_by" json:"reportedById"`
	EquipmentType EquipmentType `db:"equipment_type" json:"equipmentType"`
	Description   string        `db:"description" json:"description"`
	Status        IssueStatus   `db:"status" json:"status"`
	CreatedAt     time.Time     `db:"created_at" json:"createdAt"`
	ResolvedAt    *time.Time    `db:"resolved_at" json:"resolvedAt,omitempty"`
}

// ReporterSummary is the user projection embedded in issue responses.
type ReporterSummary struct {
	ID    string `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email"`
}

// IssueDetail is an issue joined with its lab and reporter.
type IssueDetail struct {
	Issue
	Lab      LabSummary      `db:"lab" json:"lab"`
	Reporter ReporterSummary `db:"reporter" json:"reportedBy"`
}

// IssueScope selects which issues a listing returns.
type IssueScope string

const (
	IssueScopeAll      IssueScope = "all"
	IssueScopeResolved IssueScope = "resolved"
	IssueScopeLab      IssueScope = "lab"
)

// IssueFilter narrows issue listings. LabID is required for IssueScopeLab.
type IssueFilter struct {
	Scope IssueScope
	LabID string
}
