package models

// WaitlistSignup is one person's request to be told about the launch.
//
// EmailSent is set as soon as the confirmation mail is queued, not when it is
// delivered. Readers must treat it as "scheduled".
type WaitlistSignup struct {
	Base
	Name      string  `json:"name"       gorm:"not null"`
	Email     string  `json:"email"      gorm:"uniqueIndex;size:191;not null"`
	Company   *string `json:"company"`
	IsActive  bool    `json:"is_active"  gorm:"not null;default:true"`
	EmailSent bool    `json:"email_sent" gorm:"column:email_sent;not null;default:false"`
}

func (WaitlistSignup) TableName() string { return "waitlist_signups" }
