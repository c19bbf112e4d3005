package models

// NotificationModel is a delivered notification for one recipient.
type NotificationModel struct {
	Base
	RecipientID string  `json:"recipient_id" gorm:"type:char(36);index;not null"`
	ActorKind   string  `json:"actor_kind"   gorm:"size:16;not null"`
	ActorID     string  `json:"actor_id"     gorm:"type:char(36);not null"`
	Verb        string  `json:"verb"         gorm:"size:32;not null"`
	TargetKind  *string `json:"target_kind"  gorm:"size:16"`
	TargetID    *string `json:"target_id"    gorm:"type:char(36)"`
	Description string  `json:"description"  gorm:"type:text"`
	Unread      bool    `json:"unread"       gorm:"default:true;index"`
}

func (NotificationModel) TableName() string { return "notifications" }
