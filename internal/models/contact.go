// internal/models/contact.go
package models

type ContactMessage struct {
	BaseModel
	Name             string `json:"name" gorm:"size:255;not null"`
	Email            string `json:"email" gorm:"size:255;not null;index"`
	Phone            string `json:"phone" gorm:"size:20"`
	BusinessName     string `json:"business_name" gorm:"size:255"`
	BusinessCategory string `json:"business_category" gorm:"size:255"`
	Address          string `json:"address" gorm:"type:text"`
	Subject          string `json:"subject" gorm:"size:255;not null"`
	Message          string `json:"message" gorm:"type:text;not null"`
}
