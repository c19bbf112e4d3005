package models

// TagModel is a normalized note label.
type TagModel struct {
	Base
	Name string `json:"name" gorm:"size:100;uniqueIndex;not null"`
	Slug string `json:"slug" gorm:"size:128;uniqueIndex;not null"`
}

func (TagModel) TableName() string { return "tags" }

// TagFollowModel records a user following a tag.
type TagFollowModel struct {
	Base
	UserID string `json:"user_id" gorm:"type:char(36);uniqueIndex:idx_tag_follows_pair,priority:1;not null"`
	TagID  string `json:"tag_id"  gorm:"type:char(36);uniqueIndex:idx_tag_follows_pair,priority:2;index;not null"`
}

func (TagFollowModel) TableName() string { return "tag_follows" }
