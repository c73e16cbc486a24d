package model

import "time"

// User carries the bits of the account the order core needs: identity for
// foreign keys and locale fields for notification payloads.
type User struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	UserName  string `gorm:"uniqueIndex;not null"`
	Email     string `gorm:"uniqueIndex;not null"`
	Language  string `gorm:"size:5;default:'en'"`
	Timezone  string `gorm:"size:40;default:'UTC'"`
	Grade     string `gorm:"size:20;default:'user'"` // "tester" bypasses the ongoing plan limit
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GradeTester marks internal accounts exempt from the ongoing plan limit.
const GradeTester = "tester"
