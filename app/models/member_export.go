package models

import (
	"time"

	"gorm.io/gorm"
)

// ExportStatus defines the possible export states
type ExportStatus string

const (
	ExportStatusPending   ExportStatus = "pending"
	ExportStatusRunning   ExportStatus = "running"
	ExportStatusCompleted ExportStatus = "completed"
	ExportStatusFailed    ExportStatus = "failed"
)

// MemberExport represents a CSV export of the member list to object storage
type MemberExport struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	RequestedByID uint         `gorm:"not null;index:idx_requested_by" json:"requested_by_id"`
	RequestedBy   User         `gorm:"foreignKey:RequestedByID" json:"requested_by,omitempty"`
	Status        ExportStatus `gorm:"type:varchar(20);not null;default:'pending';index:idx_status" json:"status"`
	BucketName    string       `gorm:"type:varchar(100)" json:"bucket_name"`
	ObjectKey     string       `gorm:"type:varchar(500)" json:"object_key"`
	RowCount      int          `gorm:"type:int unsigned;default:0" json:"row_count"`
	FileSize      int64        `gorm:"type:bigint unsigned" json:"file_size"`
	ErrorMessage  string       `gorm:"type:text" json:"error_message"`
	StartedAt     *time.Time   `json:"started_at"`
	CompletedAt   *time.Time   `json:"completed_at"`
	CreatedAt     time.Time    `gorm:"autoCreateTime;index:idx_created_at" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for MemberExport
func (MemberExport) TableName() string {
	return "member_exports"
}

// BeforeCreate sets default values before creating a new export record
func (me *MemberExport) BeforeCreate(tx *gorm.DB) error {
	if me.Status == "" {
		me.Status = ExportStatusPending
	}
	return nil
}

// MarkAsRunning updates the export status to running
func (me *MemberExport) MarkAsRunning(db *gorm.DB) error {
	now := time.Now()
	me.Status = ExportStatusRunning
	me.StartedAt = &now
	return db.Save(me).Error
}

// MarkAsCompleted updates the export status to completed with storage metadata
func (me *MemberExport) MarkAsCompleted(db *gorm.DB, bucketName, objectKey string, rowCount int, size int64) error {
	now := time.Now()
	me.Status = ExportStatusCompleted
	me.BucketName = bucketName
	me.ObjectKey = objectKey
	me.RowCount = rowCount
	me.FileSize = size
	me.CompletedAt = &now
	me.ErrorMessage = "" // Clear any previous error
	return db.Save(me).Error
}

// MarkAsFailed updates the export status to failed with error message
func (me *MemberExport) MarkAsFailed(db *gorm.DB, errorMsg string) error {
	me.Status = ExportStatusFailed
	me.ErrorMessage = errorMsg
	return db.Save(me).Error
}

// CreateMemberExportRecord creates a new pending export record
func CreateMemberExportRecord(db *gorm.DB, requestedByID uint) (*MemberExport, error) {
	export := &MemberExport{
		RequestedByID: requestedByID,
		Status:        ExportStatusPending,
	}

	err := db.Create(export).Error
	return export, err
}

// FindMemberExportByID finds an export record by ID
func FindMemberExportByID(db *gorm.DB, id uint) (*MemberExport, error) {
	var export MemberExport
	err := db.First(&export, id).Error
	return &export, err
}

// FindRecentMemberExports returns the most recent export records
func FindRecentMemberExports(db *gorm.DB, limit int) ([]MemberExport, error) {
	if limit <= 0 {
		limit = 20
	}
	var exports []MemberExport
	err := db.Preload("RequestedBy").Order("created_at DESC").Limit(limit).Find(&exports).Error
	return exports, err
}

// CountExportsByStatus returns the count of exports by status
func CountExportsByStatus(db *gorm.DB, status ExportStatus) (int64, error) {
	var count int64
	err := db.Model(&MemberExport{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

// FindPrunableExports returns completed exports beyond the newest keep,
// oldest first. Capped at 100 per call; the sweep runs after every export.
func FindPrunableExports(db *gorm.DB, keep int) ([]MemberExport, error) {
	if keep < 0 {
		keep = 0
	}
	var exports []MemberExport
	err := db.Where("status = ?", ExportStatusCompleted).
		Order("created_at DESC").
		Offset(keep).Limit(100).
		Find(&exports).Error
	return exports, err
}

// DeleteMemberExportRecord removes an export row after its object is gone.
func DeleteMemberExportRecord(db *gorm.DB, id uint) error {
	return db.Delete(&MemberExport{}, id).Error
}
