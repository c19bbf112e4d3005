package models

// ActionModel is an append-only log entry: actor did verb (to target).
type ActionModel struct {
	Base
	ActorKind  string  `json:"actor_kind"  gorm:"size:16;index:idx_actions_actor,priority:1;not null"`
	ActorID    string  `json:"actor_id"    gorm:"type:char(36);index:idx_actions_actor,priority:2;not null"`
	Verb       string  `json:"verb"        gorm:"size:32;index;not null"`
	TargetKind *string `json:"target_kind" gorm:"size:16"`
	TargetID   *string `json:"target_id"   gorm:"type:char(36);index"`
}

func (ActionModel) TableName() string { return "actions" }
