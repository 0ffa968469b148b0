package models

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Attachment is file metadata hung off a project, task or subtask
type Attachment struct {
	Base
	SoftDelete

	Target      Target    `gorm:"embedded;embeddedPrefix:target_" json:"target"`
	UploadedBy  uuid.UUID `gorm:"type:uuid;not null;index" json:"uploaded_by"`
	FileName    string    `gorm:"size:255;not null" json:"file_name" validate:"required,max=255"`
	FilePath    string    `gorm:"size:500;not null" json:"file_path" validate:"required,max=500"`
	FileHash    string    `gorm:"size:128;index" json:"file_hash"`
	FileSize    int64     `gorm:"not null" json:"file_size" validate:"min=0"`
	ContentType string    `gorm:"size:100" json:"content_type"`
	Description string    `gorm:"size:500" json:"description"`
}

func (Attachment) TableName() string { return "attachments" }
func (*Attachment) EntityKind() EntityKind { return KindAttachment }

func (a *Attachment) References() []Ref {
	return []Ref{a.Target.Ref(), {Kind: KindUser, ID: a.UploadedBy}}
}

func (a *Attachment) AuditScope() (*uuid.UUID, *uuid.UUID) { return a.Target.scope() }

// FileExtension is the lower-cased extension including the dot.
func (a *Attachment) FileExtension() string {
	return strings.ToLower(filepath.Ext(a.FileName))
}

func (a *Attachment) IsImage() bool {
	if strings.HasPrefix(a.ContentType, "image/") {
		return true
	}
	switch a.FileExtension() {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".svg", ".webp":
		return true
	}
	return false
}

func (a *Attachment) IsDocument() bool {
	switch a.FileExtension() {
	case ".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx", ".txt", ".md", ".csv":
		return true
	}
	return false
}

func (a *Attachment) IsArchive() bool {
	switch a.FileExtension() {
	case ".zip", ".rar", ".7z", ".tar", ".gz":
		return true
	}
	return false
}

func (a *Attachment) FileSizeFormatted() string { return FormatFileSize(a.FileSize) }

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatFileSize renders a byte count with up to two decimals, e.g. "1.5 KB".
func FormatFileSize(n int64) string {
	size := float64(n)
	if size < 0 {
		size = 0
	}
	unit := 0
	for size >= 1024 && unit < len(sizeUnits)-1 {
		size /= 1024
		unit++
	}
	return fmt.Sprintf("%s %s", strconv.FormatFloat(roundTo(size, 2), 'f', -1, 64), sizeUnits[unit])
}
