package models

import "time"

// Client represents a customer invoices are billed to.
type Client struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name string `gorm:"size:100;not null" json:"name"`
	// Phone is stored in E.164 form. NULL when unknown so the unique index skips it.
	Phone   *string `gorm:"size:32;uniqueIndex" json:"phone"`
	Address string  `gorm:"size:500" json:"address"`
}

// PhoneNumber returns the phone or an empty string.
func (c *Client) PhoneNumber() string {
	if c.Phone == nil {
		return ""
	}
	return *c.Phone
}
