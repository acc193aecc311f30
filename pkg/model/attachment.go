package model

import "time"

type FileCategory string

const (
	FileCategoryProof FileCategory = "proof"
	FileCategoryCAPA  FileCategory = "capa"
	FileCategoryCAPA1 FileCategory = "capa1"
	FileCategoryCAPA2 FileCategory = "capa2"
	FileCategoryCAPA3 FileCategory = "capa3"
)

func ValidFileCategory(c FileCategory) bool {
	switch c {
	case FileCategoryProof, FileCategoryCAPA, FileCategoryCAPA1, FileCategoryCAPA2, FileCategoryCAPA3:
		return true
	}
	return false
}

// ComplaintFile is an uploaded attachment. Rows are append-only; a file
// belongs to exactly one complaint and one category.
type ComplaintFile struct {
	ID          uint         `gorm:"primaryKey"`
	ComplaintID uint         `gorm:"not null;index"`
	Category    FileCategory `gorm:"column:file_category;type:varchar(10);not null"`
	FileType    string       `gorm:"type:varchar(10)"` // image, pdf, video, other
	StorageName string       `gorm:"column:file_url;not null"`
	CreatedAt   time.Time
}

func (ComplaintFile) TableName() string {
	return "complaint_files"
}
