package actions

// Verb is what an actor did.
type Verb string

const (
	VerbNew       Verb = "new"
	VerbCreates   Verb = "creates"
	VerbFollows   Verb = "follows"
	VerbBookmarks Verb = "bookmarks"
	VerbLikes     Verb = "likes"
	VerbDownloads Verb = "downloads"
)

func (v Verb) String() string { return string(v) }
