package picker

import (
	"context"
	"fmt"
)

// Key addresses one picker state: a conversation plus a widget id.
type Key struct {
	Session string
	Widget  string
}

func (k Key) String() string {
	return k.Session + ":" + k.Widget
}

// Store persists picker states. Load returns (nil, nil) for an absent key.
type Store interface {
	Load(ctx context.Context, key Key) (*State, error)
	Save(ctx context.Context, key Key, st *State) error
	Delete(ctx context.Context, key Key) error
}

// Completion is passed to the completion handler.
type Completion struct {
	Event   Event
	Picker  *Picker
	Session string
	Result  Result
}

// CompletionFunc runs when a picker produces a result.
type CompletionFunc func(ctx context.Context, c Completion) error

// Widget binds a Picker to a Store and a completion handler.
type Widget struct {
	picker     *Picker
	store      Store
	onComplete CompletionFunc
}

// NewWidget creates a widget. onComplete may be nil.
func NewWidget(p *Picker, store Store, onComplete CompletionFunc) *Widget {
	return &Widget{picker: p, store: store, onComplete: onComplete}
}

// Picker returns the underlying definition.
func (w *Widget) Picker() *Picker { return w.picker }

// ID returns the widget id.
func (w *Widget) ID() string { return w.picker.id }

func (w *Widget) key(session string) Key {
	return Key{Session: session, Widget: w.picker.id}
}

func (w *Widget) load(ctx context.Context, session string) (*State, error) {
	st, err := w.store.Load(ctx, w.key(session))
	if err != nil {
		return nil, fmt.Errorf("failed to load picker state %s: %w", w.key(session), err)
	}
	if st == nil {
		st = w.picker.NewState()
	}
	return st, nil
}

// Render draws the current page for session.
func (w *Widget) Render(ctx context.Context, session string) (Grid, error) {
	st, err := w.load(ctx, session)
	if err != nil {
		return Grid{}, err
	}
	return w.picker.RenderContext(ctx, st), nil
}

// Click applies the item identifier id, persists the new state, runs the
// completion handler when a result is produced and returns the next page.
func (w *Widget) Click(ctx context.Context, session, id string) (Outcome, Grid, error) {
	st, err := w.load(ctx, session)
	if err != nil {
		return Outcome{}, Grid{}, err
	}

	out := w.picker.ApplyContext(ctx, st, ParseEvent(id))
	if out.Changed {
		if err := w.store.Save(ctx, w.key(session), st); err != nil {
			return out, Grid{}, fmt.Errorf("failed to save picker state %s: %w", w.key(session), err)
		}
	}

	if out.Done && w.onComplete != nil {
		err := w.onComplete(ctx, Completion{
			Event:   out.Event,
			Picker:  w.picker,
			Session: session,
			Result:  out.Result,
		})
		if err != nil {
			return out, w.picker.RenderContext(ctx, st), fmt.Errorf("picker %s completion: %w", w.picker.id, err)
		}
	}

	return out, w.picker.RenderContext(ctx, st), nil
}

// Result returns the value currently held for session.
func (w *Widget) Result(ctx context.Context, session string) (Result, bool, error) {
	st, err := w.store.Load(ctx, w.key(session))
	if err != nil {
		return Result{}, false, fmt.Errorf("failed to load picker state %s: %w", w.key(session), err)
	}
	res, ok := w.picker.Result(st)
	return res, ok, nil
}

// Reset forgets the state of session.
func (w *Widget) Reset(ctx context.Context, session string) error {
	if err := w.store.Delete(ctx, w.key(session)); err != nil {
		return fmt.Errorf("failed to reset picker state %s: %w", w.key(session), err)
	}
	return nil
}
