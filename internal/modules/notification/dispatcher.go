package notification

import (
	"context"
	"fmt"

	"github.com/noted-space/noted/internal/modules/actions"
	"go.uber.org/zap"
)

// Delivery is one notification event addressed to a set of users.
type Delivery struct {
	Actor      actions.Entity
	Verb       actions.Verb
	Target     actions.Entity
	Recipients []string
}

// Deliverer hands a resolved notification to its recipients.
type Deliverer interface {
	Deliver(ctx context.Context, d Delivery) error
}

// DelivererFunc adapts a function to Deliverer.
type DelivererFunc func(ctx context.Context, d Delivery) error

func (f DelivererFunc) Deliver(ctx context.Context, d Delivery) error { return f(ctx, d) }

// Dispatcher maps (actor, verb, target) to recipients and delivers.
type Dispatcher struct {
	dir       Directory
	deliverer Deliverer
	logger    *zap.Logger
}

type Option func(*Dispatcher)

func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func NewDispatcher(dir Directory, deliverer Deliverer, opts ...Option) *Dispatcher {
	d := &Dispatcher{dir: dir, deliverer: deliverer, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Resolve picks who should hear about an action:
//
//	user follows user  -> the followed user
//	user likes note    -> the note author, if any
//	user creates note  -> the author's followers
//	tag creates note   -> the tag's followers
//
// Every other combination has no recipients.
func (d *Dispatcher) Resolve(ctx context.Context, actor actions.Entity, verb actions.Verb, target actions.Entity) (Recipients, error) {
	actor = actions.Normalize(actor)
	target = actions.Normalize(target)

	switch a := actor.(type) {
	case actions.UserRef:
		switch t := target.(type) {
		case actions.UserRef:
			if verb == actions.VerbFollows {
				return OneRecipient{UserID: t.ID}, nil
			}
		case actions.NoteRef:
			switch verb {
			case actions.VerbLikes:
				author, err := d.dir.NoteAuthor(ctx, t.ID)
				if err != nil {
					return nil, fmt.Errorf("lookup note author: %w", err)
				}
				if author == "" {
					return NoRecipients{}, nil
				}
				return OneRecipient{UserID: author}, nil
			case actions.VerbCreates:
				followers, err := d.dir.UserFollowers(ctx, a.ID)
				if err != nil {
					return nil, fmt.Errorf("lookup user followers: %w", err)
				}
				return many(followers), nil
			}
		}
	case actions.TagRef:
		if _, ok := target.(actions.NoteRef); ok && verb == actions.VerbCreates {
			followers, err := d.dir.TagFollowers(ctx, a.ID)
			if err != nil {
				return nil, fmt.Errorf("lookup tag followers: %w", err)
			}
			return many(followers), nil
		}
	}
	return NoRecipients{}, nil
}

func many(ids []string) Recipients {
	if len(ids) == 0 {
		return NoRecipients{}
	}
	return ManyRecipients{Users: ids}
}

// Dispatch resolves recipients and delivers to them. It returns the
// recipient IDs that were handed to the deliverer.
func (d *Dispatcher) Dispatch(ctx context.Context, actor actions.Entity, verb actions.Verb, target actions.Entity) ([]string, error) {
	actor = actions.Normalize(actor)
	if actor == nil {
		return nil, actions.ErrNoActor
	}
	target = actions.Normalize(target)

	recipients, err := d.Resolve(ctx, actor, verb, target)
	if err != nil {
		return nil, err
	}
	ids := recipients.UserIDs()
	if len(ids) == 0 {
		return nil, nil
	}

	if err := d.deliverer.Deliver(ctx, Delivery{
		Actor:      actor,
		Verb:       verb,
		Target:     target,
		Recipients: ids,
	}); err != nil {
		return nil, fmt.Errorf("deliver %s: %w", verb, err)
	}
	d.logger.Debug("notification dispatched",
		zap.String("actor", actor.EntityID()),
		zap.String("verb", verb.String()),
		zap.Int("recipients", len(ids)),
	)
	return ids, nil
}
