package wizard

import (
	"context"
	"time"

	"electrobot/catalog/internal/domain"
	"electrobot/catalog/internal/filter"
	"electrobot/catalog/internal/state"
	"electrobot/catalog/internal/store"

	log "github.com/sirupsen/logrus"
)

// SnapshotSource provides the catalog snapshot the wizard works against.
type SnapshotSource interface {
	Snapshot() *store.Snapshot
}

// Wizard narrows a category step by step. Every action on a missing session,
// unknown category or out-of-range step is a no-op and reports ok == false.
type Wizard struct {
	catalog        SnapshotSource
	sessions       state.SessionStore
	filter         *filter.Evaluator
	optionsPerStep int
}

func New(catalog SnapshotSource, sessions state.SessionStore, evaluator *filter.Evaluator, optionsPerStep int) *Wizard {
	if optionsPerStep <= 0 {
		optionsPerStep = 8
	}
	return &Wizard{
		catalog:        catalog,
		sessions:       sessions,
		filter:         evaluator,
		optionsPerStep: optionsPerStep,
	}
}

// cursor is a loaded session resolved against the current snapshot.
type cursor struct {
	session  *domain.WizardSession
	snap     *store.Snapshot
	category string
	steps    []string
}

func (w *Wizard) Start(ctx context.Context, key domain.SessionKey, slug string) (*View, bool) {
	snap := w.catalog.Snapshot()
	category, ok := snap.Index.CategoryBySlug(slug)
	if !ok {
		log.WithField("session", key.String()).Warnf("⚠️ Wizard start for unknown category %q ignored", slug)
		return nil, false
	}

	c := &cursor{
		session:  domain.NewWizardSession(slug, category),
		snap:     snap,
		category: category,
		steps:    snap.Index.Steps(category),
	}
	if !w.save(ctx, key, c) {
		return nil, false
	}
	return w.render(c), true
}

// Select records value for the current step and advances.
func (w *Wizard) Select(ctx context.Context, key domain.SessionKey, value string) (*View, bool) {
	c, ok := w.load(ctx, key)
	if !ok || !c.inRange() {
		return nil, false
	}
	c.session.Selections.Set(c.steps[c.session.Step], value)
	c.session.Step++
	if !w.save(ctx, key, c) {
		return nil, false
	}
	return w.render(c), true
}

// SelectOption selects the idx-th candidate value of the current step, as
// listed in the last rendered view.
func (w *Wizard) SelectOption(ctx context.Context, key domain.SessionKey, idx int) (*View, bool) {
	c, ok := w.load(ctx, key)
	if !ok || !c.inRange() {
		return nil, false
	}
	options := c.snap.Index.Values(c.category, c.steps[c.session.Step], w.optionsPerStep)
	if idx < 0 || idx >= len(options) {
		log.WithField("session", key.String()).Debugf("Option %d out of range (%d options)", idx, len(options))
		return nil, false
	}
	c.session.Selections.Set(c.steps[c.session.Step], options[idx].Value)
	c.session.Step++
	if !w.save(ctx, key, c) {
		return nil, false
	}
	return w.render(c), true
}

func (w *Wizard) Skip(ctx context.Context, key domain.SessionKey) (*View, bool) {
	c, ok := w.load(ctx, key)
	if !ok || !c.inRange() {
		return nil, false
	}
	c.session.Step++
	if !w.save(ctx, key, c) {
		return nil, false
	}
	return w.render(c), true
}

// Back drops the selection made at the previous step, if any, and returns to it.
func (w *Wizard) Back(ctx context.Context, key domain.SessionKey) (*View, bool) {
	c, ok := w.load(ctx, key)
	if !ok || c.session.Step == 0 {
		return nil, false
	}
	prev := c.session.Step - 1
	if prev < len(c.steps) {
		c.session.Selections.Delete(c.steps[prev])
	}
	c.session.Step = prev
	if !w.save(ctx, key, c) {
		return nil, false
	}
	return w.render(c), true
}

func (w *Wizard) Reset(ctx context.Context, key domain.SessionKey) (*View, bool) {
	c, ok := w.load(ctx, key)
	if !ok {
		return nil, false
	}
	c.session.Selections.Clear()
	c.session.Step = 0
	if !w.save(ctx, key, c) {
		return nil, false
	}
	return w.render(c), true
}

// Show runs the filter for the current selections without changing the
// session.
func (w *Wizard) Show(ctx context.Context, key domain.SessionKey) ([]domain.Product, *View, bool) {
	c, ok := w.load(ctx, key)
	if !ok {
		return nil, nil, false
	}
	products := w.filter.Filter(c.snap.Products, c.category, c.session.Selections)
	return products, w.render(c), true
}

// View renders the session as it is.
func (w *Wizard) View(ctx context.Context, key domain.SessionKey) (*View, bool) {
	c, ok := w.load(ctx, key)
	if !ok {
		return nil, false
	}
	return w.render(c), true
}

func (w *Wizard) load(ctx context.Context, key domain.SessionKey) (*cursor, bool) {
	logger := log.WithField("session", key.String())

	session, err := w.sessions.Get(ctx, key)
	if err != nil {
		logger.Errorf("❌ Failed to load wizard session: %v", err)
		return nil, false
	}
	if session == nil {
		logger.Debug("No wizard session")
		return nil, false
	}

	snap := w.catalog.Snapshot()
	category, ok := snap.Index.CategoryBySlug(session.Category)
	if !ok {
		logger.Warnf("⚠️ Wizard category %q is no longer in the catalog", session.Category)
		w.drop(ctx, key)
		return nil, false
	}
	if session.CategoryName != "" && category != session.CategoryName {
		logger.Warnf("⚠️ Wizard category %q now points to %q instead of %q", session.Category, category, session.CategoryName)
		w.drop(ctx, key)
		return nil, false
	}
	steps := snap.Index.Steps(category)
	// the catalog may have been refreshed with fewer steps since the last action
	if session.Step > len(steps) {
		session.Step = len(steps)
	}
	if session.Step < 0 {
		session.Step = 0
	}
	return &cursor{session: session, snap: snap, category: category, steps: steps}, true
}

func (w *Wizard) save(ctx context.Context, key domain.SessionKey, c *cursor) bool {
	c.session.UpdatedAt = time.Now()
	if err := w.sessions.Save(ctx, key, c.session); err != nil {
		log.WithField("session", key.String()).Errorf("❌ Failed to save wizard session: %v", err)
		return false
	}
	return true
}

// drop removes a session that can no longer be resolved against the catalog.
func (w *Wizard) drop(ctx context.Context, key domain.SessionKey) {
	if err := w.sessions.Delete(ctx, key); err != nil {
		log.WithField("session", key.String()).Errorf("❌ Failed to delete wizard session: %v", err)
	}
}

func (c *cursor) inRange() bool {
	return c.session.Step >= 0 && c.session.Step < len(c.steps)
}
