// Package reconcile implements edit mode over sectors, stock masters and
// brokerage mappings: pending edits are staged in an overlay, committed in one
// batch request and discarded on cancel.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

var (
	ErrEmptySelection = errors.New("no entries selected for deletion")
	ErrNothingValid   = errors.New("no valid updates to save")
	ErrBusy           = errors.New("another operation is in progress")
	ErrNotEditing     = errors.New("not in edit mode")
	ErrUnknownEntity  = errors.New("unknown entity")
	ErrNotSupported   = errors.New("operation not supported")
)

// Mode is the workflow state.
type Mode int

const (
	ModeView Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "view"
}

// Edit pairs a committed entity with its staged patch.
type Edit[E, P any] struct {
	Entity E
	Patch  P
}

// Kind adapts one entity type to the workflow.
type Kind[E, P any] interface {
	// Noun names the entities in notices, e.g. "sectors".
	Noun() string
	ID(E) int
	// Validate rejects a single staged edit; rejected edits are excluded from the batch.
	Validate(E, P) error
	// Update sends one batch request for all valid edits.
	Update(ctx context.Context, edits []Edit[E, P]) error
	// Apply returns the committed entity with the patch applied.
	Apply(E, P) E
}

// Deleter is implemented by kinds that support batch delete.
type Deleter interface {
	Delete(ctx context.Context, ids []int) error
}

// Committer is implemented by kinds that mirror committed state elsewhere.
type Committer[E any] interface {
	Committed([]E)
}

// Workflow holds committed entities and the pending-edit overlay for one kind.
// All methods are safe for concurrent use; a second mutating call made while a
// remote request is outstanding fails with ErrBusy.
type Workflow[E, P any] struct {
	kind     Kind[E, P]
	notifier Notifier

	mu        sync.Mutex
	busy      bool
	mode      Mode
	committed []E
	overlay   map[int]P
	selected  map[int]struct{}
}

// New creates a workflow in view mode over items.
func New[E, P any](kind Kind[E, P], items []E, notifier Notifier) *Workflow[E, P] {
	if kind == nil {
		panic("reconcile.New: kind must not be nil")
	}
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Workflow[E, P]{
		kind:      kind,
		notifier:  notifier,
		committed: slices.Clone(items),
		overlay:   make(map[int]P),
		selected:  make(map[int]struct{}),
	}
}

// Items returns a copy of the committed entities.
func (w *Workflow[E, P]) Items() []E {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.committed)
}

// Effective returns the committed entities with staged edits applied, for display.
func (w *Workflow[E, P]) Effective() []E {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := slices.Clone(w.committed)
	for i, e := range out {
		if p, ok := w.overlay[w.kind.ID(e)]; ok {
			out[i] = w.kind.Apply(e, p)
		}
	}
	return out
}

// Mode returns the current mode.
func (w *Workflow[E, P]) Mode() Mode {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mode
}

// Busy reports whether a remote request is outstanding.
func (w *Workflow[E, P]) Busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.busy
}

// Pending returns a copy of the overlay.
func (w *Workflow[E, P]) Pending() map[int]P {
	w.mu.Lock()
	defer w.mu.Unlock()
	return maps.Clone(w.overlay)
}

// Selected returns the selected ids in ascending order.
func (w *Workflow[E, P]) Selected() []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Sorted(maps.Keys(w.selected))
}

// Reload replaces the committed entities, dropping edits and selections of
// entities that no longer exist.
func (w *Workflow[E, P]) Reload(items []E) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.committed = slices.Clone(items)
	maps.DeleteFunc(w.overlay, func(id int, _ P) bool { return !w.hasLocked(id) })
	maps.DeleteFunc(w.selected, func(id int, _ struct{}) bool { return !w.hasLocked(id) })
}

// Enter switches to edit mode.
func (w *Workflow[E, P]) Enter() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy {
		return ErrBusy
	}
	w.mode = ModeEdit
	return nil
}

// Cancel discards staged edits and selections and returns to view mode.
func (w *Workflow[E, P]) Cancel() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy {
		return ErrBusy
	}
	w.resetLocked()
	return nil
}

// Stage records a pending edit for id without touching committed state.
func (w *Workflow[E, P]) Stage(id int, patch P) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editableLocked(); err != nil {
		return err
	}
	if !w.hasLocked(id) {
		return fmt.Errorf("staging %s %d: %w", w.kind.Noun(), id, ErrUnknownEntity)
	}
	w.overlay[id] = patch
	return nil
}

// Unstage drops the pending edit for id.
func (w *Workflow[E, P]) Unstage(id int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editableLocked(); err != nil {
		return err
	}
	delete(w.overlay, id)
	return nil
}

// Toggle flips the selection of id.
func (w *Workflow[E, P]) Toggle(id int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editableLocked(); err != nil {
		return err
	}
	if !w.hasLocked(id) {
		return fmt.Errorf("selecting %s %d: %w", w.kind.Noun(), id, ErrUnknownEntity)
	}
	if _, ok := w.selected[id]; ok {
		delete(w.selected, id)
	} else {
		w.selected[id] = struct{}{}
	}
	return nil
}

// SelectAll selects every known id in ids; typically the rows currently visible.
func (w *Workflow[E, P]) SelectAll(ids []int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editableLocked(); err != nil {
		return err
	}
	for _, id := range ids {
		if w.hasLocked(id) {
			w.selected[id] = struct{}{}
		}
	}
	return nil
}

// ClearSelection deselects everything.
func (w *Workflow[E, P]) ClearSelection() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editableLocked(); err != nil {
		return err
	}
	clear(w.selected)
	return nil
}

// PruneSelection keeps only selected ids that are in visible, so a delete never
// reaches rows hidden by the current filter.
func (w *Workflow[E, P]) PruneSelection(visible []int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	maps.DeleteFunc(w.selected, func(id int, _ struct{}) bool { return !slices.Contains(visible, id) })
}

// SaveAll commits every staged edit in one batch request.
func (w *Workflow[E, P]) SaveAll(ctx context.Context) error {
	edits, err := w.beginSave()
	if err != nil {
		return err
	}
	if edits == nil {
		w.notify(LevelSuccess, "No changes to save.")
		return nil
	}

	var valid []Edit[E, P]
	for _, e := range edits {
		if err := w.kind.Validate(e.Entity, e.Patch); err != nil {
			w.notify(LevelError, "Skipped: "+err.Error()+".")
			continue
		}
		valid = append(valid, e)
	}
	if len(valid) == 0 {
		w.end()
		w.notify(LevelError, "No valid updates to save.")
		return &noticeError{ErrNothingValid}
	}

	if err := w.kind.Update(ctx, valid); err != nil {
		w.end()
		w.notify(LevelError, fmt.Sprintf("Failed to update %s: %v", w.kind.Noun(), err))
		return &noticeError{fmt.Errorf("updating %s: %w", w.kind.Noun(), err)}
	}

	committed := w.commitSave(valid)
	if c, ok := w.kind.(Committer[E]); ok {
		c.Committed(committed)
	}
	w.notify(LevelSuccess, fmt.Sprintf("Updated %d %s.", len(valid), w.kind.Noun()))
	return nil
}

// DeleteSelected deletes the selection after confirm approves. A declined
// confirmation is a no-op.
func (w *Workflow[E, P]) DeleteSelected(ctx context.Context, confirm Confirmer) error {
	deleter, ok := w.kind.(Deleter)
	if !ok {
		return fmt.Errorf("deleting %s: %w", w.kind.Noun(), ErrNotSupported)
	}

	ids, err := w.beginDelete()
	if err != nil {
		if errors.Is(err, ErrEmptySelection) {
			w.notify(LevelError, "No entries selected for deletion.")
			return &noticeError{err}
		}
		return err
	}

	prompt := fmt.Sprintf("Are you sure you want to delete %d selected %s?", len(ids), w.kind.Noun())
	if confirm != nil && !confirm(prompt) {
		w.end()
		return nil
	}

	if err := deleter.Delete(ctx, ids); err != nil {
		w.end()
		w.notify(LevelError, fmt.Sprintf("Failed to delete selected %s: %v", w.kind.Noun(), err))
		return &noticeError{fmt.Errorf("deleting %s: %w", w.kind.Noun(), err)}
	}

	committed := w.commitDelete(ids)
	if c, ok := w.kind.(Committer[E]); ok {
		c.Committed(committed)
	}
	w.notify(LevelSuccess, fmt.Sprintf("Deleted %d %s.", len(ids), w.kind.Noun()))
	return nil
}

// beginSave claims the busy flag and snapshots the overlay. A nil result with a
// nil error means the overlay was empty; the workflow is then back in view mode.
func (w *Workflow[E, P]) beginSave() ([]Edit[E, P], error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editableLocked(); err != nil {
		return nil, err
	}
	if len(w.overlay) == 0 {
		w.resetLocked()
		return nil, nil
	}
	edits := make([]Edit[E, P], 0, len(w.overlay))
	for _, e := range w.committed {
		if p, ok := w.overlay[w.kind.ID(e)]; ok {
			edits = append(edits, Edit[E, P]{Entity: e, Patch: p})
		}
	}
	w.busy = true
	return edits, nil
}

func (w *Workflow[E, P]) beginDelete() ([]int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editableLocked(); err != nil {
		return nil, err
	}
	if len(w.selected) == 0 {
		return nil, ErrEmptySelection
	}
	w.busy = true
	return slices.Sorted(maps.Keys(w.selected)), nil
}

func (w *Workflow[E, P]) commitSave(edits []Edit[E, P]) []E {
	w.mu.Lock()
	defer w.mu.Unlock()
	patches := make(map[int]P, len(edits))
	for _, e := range edits {
		patches[w.kind.ID(e.Entity)] = e.Patch
	}
	for i, e := range w.committed {
		if p, ok := patches[w.kind.ID(e)]; ok {
			w.committed[i] = w.kind.Apply(e, p)
		}
	}
	w.resetLocked()
	w.busy = false
	return slices.Clone(w.committed)
}

func (w *Workflow[E, P]) commitDelete(ids []int) []E {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.committed = slices.DeleteFunc(w.committed, func(e E) bool { return slices.Contains(ids, w.kind.ID(e)) })
	for _, id := range ids {
		delete(w.overlay, id)
	}
	clear(w.selected)
	w.busy = false
	return slices.Clone(w.committed)
}

// addCommitted appends a newly created entity to committed state.
func (w *Workflow[E, P]) addCommitted(e E) []E {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.committed = append(w.committed, e)
	return slices.Clone(w.committed)
}

// begin claims the busy flag for an operation outside SaveAll and DeleteSelected.
func (w *Workflow[E, P]) begin(requireEdit bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy {
		return ErrBusy
	}
	if requireEdit && w.mode != ModeEdit {
		return ErrNotEditing
	}
	w.busy = true
	return nil
}

func (w *Workflow[E, P]) end() {
	w.mu.Lock()
	w.busy = false
	w.mu.Unlock()
}

func (w *Workflow[E, P]) find(id int) (E, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, e := range w.committed {
		if w.kind.ID(e) == id {
			return e, true
		}
	}
	var zero E
	return zero, false
}

// stageBusy is Stage for callers that already hold the busy flag.
func (w *Workflow[E, P]) stageBusy(id int, patch P) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.overlay[id] = patch
}

func (w *Workflow[E, P]) editableLocked() error {
	if w.busy {
		return ErrBusy
	}
	if w.mode != ModeEdit {
		return ErrNotEditing
	}
	return nil
}

func (w *Workflow[E, P]) hasLocked(id int) bool {
	return slices.ContainsFunc(w.committed, func(e E) bool { return w.kind.ID(e) == id })
}

func (w *Workflow[E, P]) resetLocked() {
	clear(w.overlay)
	clear(w.selected)
	w.mode = ModeView
}

func (w *Workflow[E, P]) notify(level Level, msg string) {
	w.notifier.Notify(Notice{Level: level, Message: strings.TrimSpace(msg)})
}
