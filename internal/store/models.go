package store

import "time"

// Document 知识库文档，一条常见问题及其标准答案
type Document struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DocID      string    `gorm:"size:36;uniqueIndex;not null" json:"doc_id"`
	Title      string    `gorm:"size:255;not null" json:"title"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Category   string    `gorm:"size:64;index" json:"category"`
	SourceName string    `gorm:"size:128" json:"source_name"`
	URL        string    `gorm:"size:512" json:"url"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Document) TableName() string {
	return "knowledge_documents"
}
