// Package chain maintains the doodle tree. A doodle's root is the id of the
// parentless doodle its chain grew from, and its tail length is its depth in
// that chain counting from one.
//
// A parentless doodle cannot know its own id until the store has assigned
// one, so it is saved with root set to store.RootSentinel and fixed up by a
// separate resolution pass that any client may run.
package chain

import (
	"context"
	"errors"
	"fmt"

	"doodle-chain/internal/store"

	"github.com/rs/zerolog/log"
)

// maxLineageDepth bounds parent walks so a corrupted cycle cannot spin forever.
const maxLineageDepth = 10000

var (
	ErrMissingArtist = errors.New("artist is required")
	ErrEmptyImage    = errors.New("image is required")
	ErrUnsavedParent = errors.New("parent doodle has no id")
	ErrLineageCycle  = errors.New("doodle lineage contains a cycle")
)

type Manager struct {
	store  store.DoodleStore
	notify func(string)

	Composite CompositeOptions
}

// NewManager returns a manager writing through st. notify receives
// user-facing messages for background failures and may be nil.
func NewManager(st store.DoodleStore, notify func(string)) *Manager {
	if notify == nil {
		notify = func(string) {}
	}
	return &Manager{store: st, notify: notify, Composite: DefaultCompositeOptions()}
}

// Append saves a new doodle under parent, or as a new chain when parent is
// nil. Saving a parentless doodle triggers a root resolution pass; failures
// of that pass are reported through the notifier and never fail the append.
func (m *Manager) Append(ctx context.Context, parent *store.Doodle, artist string, image []byte, inGame bool) (store.Doodle, error) {
	if artist == "" {
		return store.Doodle{}, ErrMissingArtist
	}
	if len(image) == 0 {
		return store.Doodle{}, ErrEmptyImage
	}

	doodle := store.Doodle{
		Image:      image,
		Artist:     artist,
		Root:       store.RootSentinel,
		TailLength: 1,
		InGame:     inGame,
	}
	if parent != nil {
		if parent.ID == "" {
			return store.Doodle{}, ErrUnsavedParent
		}
		root, err := m.rootFor(ctx, *parent)
		if err != nil {
			return store.Doodle{}, err
		}
		doodle.Parent = parent.ID
		doodle.Root = root
		doodle.TailLength = parent.TailLength + 1
		doodle.InGame = parent.InGame
	}

	if err := m.store.CreateDoodle(ctx, &doodle); err != nil {
		return store.Doodle{}, fmt.Errorf("save doodle: %w", err)
	}
	log.Info().
		Str("doodle_id", doodle.ID).
		Str("artist", doodle.Artist).
		Int("tail_length", doodle.TailLength).
		Msg("doodle saved")

	if parent == nil {
		resolved, err := m.resolve(ctx)
		if err != nil {
			log.Warn().Err(err).Str("doodle_id", doodle.ID).Msg("root resolution failed")
			m.notify("Saved, but the chain could not be linked yet. It will be fixed on a later save.")
		}
		for _, r := range resolved {
			if r.ID == doodle.ID {
				doodle.Root = r.Root
			}
		}
	}
	return doodle, nil
}

// rootFor returns the root a child of parent inherits. A parent still
// carrying the sentinel is resolved through its lineage.
func (m *Manager) rootFor(ctx context.Context, parent store.Doodle) (string, error) {
	if parent.RootResolved() {
		return parent.Root, nil
	}
	if !parent.HasParent() {
		return parent.ID, nil
	}
	lineage, err := m.Lineage(ctx, parent.ID)
	if err != nil {
		return "", fmt.Errorf("resolve parent root: %w", err)
	}
	return lineage[0].ID, nil
}

// ResolveRoots sets root on every doodle still carrying the sentinel and
// returns how many records were updated. Running it again over the same
// store state changes nothing.
func (m *Manager) ResolveRoots(ctx context.Context) (int, error) {
	resolved, err := m.resolve(ctx)
	return len(resolved), err
}

func (m *Manager) resolve(ctx context.Context) ([]store.Doodle, error) {
	pending, err := m.store.QueryDoodles(ctx, store.DoodleQuery{Root: store.RootSentinel})
	if err != nil {
		return nil, fmt.Errorf("query unresolved doodles: %w", err)
	}
	if len(pending) == 0 {
		return nil, nil
	}

	updates := PlanRootResolution(pending)
	planned := make(map[string]bool, len(updates))
	for _, u := range updates {
		planned[u.ID] = true
	}
	var errs []error
	for _, d := range pending {
		if planned[d.ID] {
			continue
		}
		lineage, err := m.Lineage(ctx, d.ID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("resolve root of %s: %w", d.ID, err))
			continue
		}
		d.Root = lineage[0].ID
		updates = append(updates, d)
	}

	resolved := make([]store.Doodle, 0, len(updates))
	for _, d := range updates {
		if err := m.store.UpdateDoodle(ctx, d); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			errs = append(errs, fmt.Errorf("resolve root of %s: %w", d.ID, err))
			continue
		}
		resolved = append(resolved, d)
	}
	if len(resolved) > 0 {
		log.Info().Int("count", len(resolved)).Msg("doodle roots resolved")
	}
	return resolved, errors.Join(errs...)
}

// PlanRootResolution returns the updated copies of the pending doodles whose
// root can be decided from pending alone. A parentless doodle is its own
// root; a child inherits the root of the parentless doodle it descends from
// when every link of that path is itself pending.
func PlanRootResolution(pending []store.Doodle) []store.Doodle {
	byID := make(map[string]store.Doodle, len(pending))
	for _, d := range pending {
		byID[d.ID] = d
	}
	out := make([]store.Doodle, 0, len(pending))
	for _, d := range pending {
		if d.RootResolved() {
			continue
		}
		root, ok := pendingOrigin(byID, d)
		if !ok {
			continue
		}
		d.Root = root
		out = append(out, d)
	}
	return out
}

func pendingOrigin(byID map[string]store.Doodle, d store.Doodle) (string, bool) {
	current := d
	for steps := 0; steps <= len(byID); steps++ {
		if !current.HasParent() {
			return current.ID, true
		}
		parent, ok := byID[current.Parent]
		if !ok {
			return "", false
		}
		current = parent
	}
	return "", false
}

// Lineage returns the doodle with the given id and its ancestors, origin
// first. A parent that no longer exists ends the walk.
func (m *Manager) Lineage(ctx context.Context, id string) ([]store.Doodle, error) {
	doodle, err := m.store.FetchDoodle(ctx, id)
	if err != nil {
		return nil, err
	}
	path := []store.Doodle{doodle}
	seen := map[string]bool{doodle.ID: true}
	for doodle.HasParent() {
		if len(path) > maxLineageDepth || seen[doodle.Parent] {
			return nil, ErrLineageCycle
		}
		parent, err := m.store.FetchDoodle(ctx, doodle.Parent)
		if errors.Is(err, store.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		seen[parent.ID] = true
		path = append(path, parent)
		doodle = parent
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// Chain lists every doodle of the chain rooted at rootID by depth.
func (m *Manager) Chain(ctx context.Context, rootID string) ([]store.Doodle, error) {
	return m.store.QueryDoodles(ctx, store.DoodleQuery{Root: rootID})
}

// Contribute draws layer on top of the doodle parentID and appends the
// result to its chain. An empty or vanished parent starts a new chain.
func (m *Manager) Contribute(ctx context.Context, parentID, artist string, layer []byte, inGame bool) (store.Doodle, error) {
	var parent *store.Doodle
	if parentID != "" {
		fetched, err := m.store.FetchDoodle(ctx, parentID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			log.Info().Str("parent_id", parentID).Msg("parent doodle gone, starting a new chain")
		case err != nil:
			return store.Doodle{}, fmt.Errorf("load parent doodle: %w", err)
		default:
			parent = &fetched
		}
	}

	image := layer
	if parent != nil {
		composed, err := CompositeImage(layer, parent.Image, m.Composite)
		if err != nil {
			return store.Doodle{}, err
		}
		image = composed
	}
	return m.Append(ctx, parent, artist, image, inGame)
}
