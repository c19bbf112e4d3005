package models

// Note languages.
const (
	LangEnglish    = "en"
	LangRussian    = "ru"
	LangUndetected = "er"
)

// NoteModel is a Markdown note.
type NoteModel struct {
	Base
	Title     string       `json:"title"      gorm:"size:100;not null;index"`
	Slug      string       `json:"slug"       gorm:"size:255;uniqueIndex;not null"`
	AuthorID  *string      `json:"author_id"  gorm:"type:char(36);index"`
	Author    *UserModel   `json:"author,omitempty" gorm:"foreignKey:AuthorID;constraint:OnDelete:SET NULL"`
	SourceID  *string      `json:"source_id"  gorm:"type:char(36);index"`
	Source    *SourceModel `json:"source,omitempty" gorm:"foreignKey:SourceID;constraint:OnDelete:SET NULL"`
	ForkID    *string      `json:"fork_id"    gorm:"type:char(36);index"`
	Fork      *NoteModel   `json:"fork,omitempty" gorm:"foreignKey:ForkID;constraint:OnDelete:SET NULL"`
	BodyRaw   string       `json:"body_raw"   gorm:"type:longtext"`
	BodyHTML  string       `json:"body_html"  gorm:"type:longtext"`
	Summary   string       `json:"summary"    gorm:"size:250"`
	Draft     bool         `json:"draft"      gorm:"default:false;index"`
	Anonymous bool         `json:"anonymous"  gorm:"default:false"`
	Pin       bool         `json:"pin"        gorm:"default:false"`
	Lang      string       `json:"lang"       gorm:"size:2;default:'er'"`
	Views     int          `json:"views"      gorm:"default:0"`
	Likes     []UserModel  `json:"-"          gorm:"many2many:note_likes;joinForeignKey:NoteID;joinReferences:UserID"`
	Bookmarks []UserModel  `json:"-"          gorm:"many2many:note_bookmarks;joinForeignKey:NoteID;joinReferences:UserID"`
	Tags      []TagModel   `json:"tags"       gorm:"many2many:note_tags;joinForeignKey:NoteID;joinReferences:TagID"`
}

func (NoteModel) TableName() string { return "notes" }

// Source types.
const (
	SourceOther    = "0"
	SourceBook     = "1"
	SourceCourse   = "2"
	SourceVideo    = "3"
	SourceArticle  = "4"
	SourceLecture  = "5"
	SourceTutorial = "6"
)

// SourceTypeNames maps a source type code to its readable name.
var SourceTypeNames = map[string]string{
	SourceOther:    "Other",
	SourceBook:     "Book",
	SourceCourse:   "Course",
	SourceVideo:    "Video",
	SourceArticle:  "Article",
	SourceLecture:  "Lecture",
	SourceTutorial: "Tutorial",
}

// SourceModel is where a note's material came from (book, course, video...).
// A source without notes is removed when its last note is deleted.
type SourceModel struct {
	Base
	Type        string `json:"type"        gorm:"size:20;default:'0'"`
	Title       string `json:"title"       gorm:"size:200;not null;index"`
	Link        string `json:"link"        gorm:"size:255"`
	Description string `json:"description" gorm:"size:100"`
	Slug        string `json:"slug"        gorm:"size:254;uniqueIndex;not null"`
}

func (SourceModel) TableName() string { return "sources" }
