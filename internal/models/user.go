package models

import "time"

// UserModel is a registered account.
type UserModel struct {
	Base
	Email     string     `json:"email"      gorm:"size:254;uniqueIndex;not null"`
	Username  string     `json:"username"   gorm:"size:150;uniqueIndex;not null"`
	FullName  string     `json:"full_name"  gorm:"size:50"`
	Password  string     `json:"-"          gorm:"not null"`
	IsActive  bool       `json:"is_active"  gorm:"default:true"`
	IsStaff   bool       `json:"is_staff"   gorm:"default:false"`
	LastLogin *time.Time `json:"last_login"`
}

func (UserModel) TableName() string { return "users" }

// FollowingModel links a follower to the user they follow.
// Self-follows are rejected by the social service, not by the schema.
type FollowingModel struct {
	Base
	FollowerID string     `json:"follower_id" gorm:"type:char(36);uniqueIndex:idx_followings_pair,priority:1;not null"`
	FollowedID string     `json:"followed_id" gorm:"type:char(36);uniqueIndex:idx_followings_pair,priority:2;index;not null"`
	Follower   *UserModel `json:"follower,omitempty" gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE"`
	Followed   *UserModel `json:"followed,omitempty" gorm:"foreignKey:FollowedID;constraint:OnDelete:CASCADE"`
}

func (FollowingModel) TableName() string { return "followings" }
