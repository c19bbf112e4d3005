package actions

import "sync"

// Kind names the type of an actor or target.
type Kind string

const (
	KindUser Kind = "user"
	KindTag  Kind = "tag"
	KindNote Kind = "note"
)

// Entity is something that can act or be acted upon. The set of variants
// is closed: UserRef, TagRef, NoteRef and the Lazy wrapper.
type Entity interface {
	Kind() Kind
	EntityID() string
	entity()
}

type UserRef struct{ ID string }

func (UserRef) Kind() Kind         { return KindUser }
func (u UserRef) EntityID() string { return u.ID }
func (UserRef) entity()            {}

type TagRef struct{ ID string }

func (TagRef) Kind() Kind         { return KindTag }
func (t TagRef) EntityID() string { return t.ID }
func (TagRef) entity()            {}

type NoteRef struct{ ID string }

func (NoteRef) Kind() Kind         { return KindNote }
func (n NoteRef) EntityID() string { return n.ID }
func (NoteRef) entity()            {}

// Lazy defers resolving an entity until first use, e.g. the current
// request user. It must be passed through Normalize before a type switch.
type Lazy struct {
	once    sync.Once
	resolve func() Entity
	value   Entity
}

func NewLazy(resolve func() Entity) *Lazy {
	return &Lazy{resolve: resolve}
}

// Get resolves the wrapped entity once.
func (l *Lazy) Get() Entity {
	l.once.Do(func() {
		if l.resolve != nil {
			l.value = l.resolve()
		}
	})
	return l.value
}

func (l *Lazy) Kind() Kind {
	if e := Normalize(l); e != nil {
		return e.Kind()
	}
	return ""
}

func (l *Lazy) EntityID() string {
	if e := Normalize(l); e != nil {
		return e.EntityID()
	}
	return ""
}

func (*Lazy) entity() {}

// Normalize unwraps Lazy wrappers down to a concrete variant.
// It returns nil when a wrapper resolves to nothing.
func Normalize(e Entity) Entity {
	for {
		l, ok := e.(*Lazy)
		if !ok {
			return e
		}
		if l == nil {
			return nil
		}
		e = l.Get()
	}
}

// Ref builds the concrete entity for a stored (kind, id) pair.
func Ref(kind Kind, id string) Entity {
	switch kind {
	case KindUser:
		return UserRef{ID: id}
	case KindTag:
		return TagRef{ID: id}
	case KindNote:
		return NoteRef{ID: id}
	}
	return nil
}
