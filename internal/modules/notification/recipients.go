package notification

// Recipients is the resolved audience of a notification: nobody,
// a single user, or a set of users.
type Recipients interface {
	UserIDs() []string
	recipients()
}

type NoRecipients struct{}

func (NoRecipients) UserIDs() []string { return nil }
func (NoRecipients) recipients()       {}

type OneRecipient struct{ UserID string }

func (o OneRecipient) UserIDs() []string { return []string{o.UserID} }
func (OneRecipient) recipients()         {}

type ManyRecipients struct{ Users []string }

func (m ManyRecipients) UserIDs() []string { return m.Users }
func (ManyRecipients) recipients()         {}
