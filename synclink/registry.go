package synclink

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/alexandre-normand/chatrelay/store"
	"github.com/pkg/errors"
)

// Registry errors
var (
	// ErrAlreadyLinked is returned when adding a link whose endpoint pair already exists
	ErrAlreadyLinked = errors.New("already linked")
	// ErrNotLinked is returned when removing or updating a link that doesn't exist
	ErrNotLinked = errors.New("not linked")
)

// Registry owns the set of active links. Readers get the current immutable snapshot without
// locking. Every mutation reloads the persisted list, applies the change, saves the full list
// and only then swaps the in-memory snapshot
type Registry struct {
	name               string
	storer             store.StringStorer
	defaultExternalTag string

	mu       sync.Mutex
	snapshot atomic.Value
}

// RegistryOption defines an option for a Registry
type RegistryOption func(r *Registry)

// OptionDefaultExternalTag sets the external tag given to loaded links that were persisted
// without one
func OptionDefaultExternalTag(tag string) func(r *Registry) {
	return func(r *Registry) {
		r.defaultExternalTag = tag
	}
}

// NewRegistry creates a Registry persisting its links under the bridge instance name and loads the
// currently persisted links
func NewRegistry(name string, storer store.StringStorer, options ...RegistryOption) (r *Registry, err error) {
	r = new(Registry)
	r.name = name
	r.storer = storer

	for _, opt := range options {
		opt(r)
	}

	if err = r.Reload(); err != nil {
		return nil, err
	}

	return r, nil
}

// Name returns the bridge instance name the links are persisted under
func (r *Registry) Name() string {
	return r.name
}

// Reload replaces the in-memory snapshot with the persisted links
func (r *Registry) Reload() (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	links, err := r.load()
	if err != nil {
		return err
	}

	r.snapshot.Store(links)
	return nil
}

// Add adds a new link. ErrAlreadyLinked is returned if the endpoint pair is already linked
func (r *Registry) Add(l SyncLink) (err error) {
	return r.mutate(func(links []SyncLink) ([]SyncLink, error) {
		if indexOf(links, l.InternalID, l.ExternalID) >= 0 {
			return nil, errors.Wrapf(ErrAlreadyLinked, "[%s] <-> [%s]", l.InternalID, l.ExternalID)
		}

		return append(links, l), nil
	})
}

// Remove removes the link between the two ids. ErrNotLinked is returned if there is no such link
func (r *Registry) Remove(internalID string, externalID string) (err error) {
	return r.mutate(func(links []SyncLink) ([]SyncLink, error) {
		i := indexOf(links, internalID, externalID)
		if i < 0 {
			return nil, errors.Wrapf(ErrNotLinked, "[%s] <-> [%s]", internalID, externalID)
		}

		return append(links[:i], links[i+1:]...), nil
	})
}

// Update applies mutator to the link between the two ids. The link endpoints can't be changed by
// the mutator. ErrNotLinked is returned if there is no such link
func (r *Registry) Update(internalID string, externalID string, mutator func(l *SyncLink)) (err error) {
	return r.mutate(func(links []SyncLink) ([]SyncLink, error) {
		i := indexOf(links, internalID, externalID)
		if i < 0 {
			return nil, errors.Wrapf(ErrNotLinked, "[%s] <-> [%s]", internalID, externalID)
		}

		l := links[i]
		mutator(&l)
		l.InternalID = internalID
		l.ExternalID = externalID
		links[i] = l

		return links, nil
	})
}

// Find returns the link between the two ids, if any
func (r *Registry) Find(internalID string, externalID string) (l SyncLink, ok bool) {
	links := r.current()
	if i := indexOf(links, internalID, externalID); i >= 0 {
		return links[i], true
	}

	return SyncLink{}, false
}

// FindByInternal returns all links bridging the internal conversation id
func (r *Registry) FindByInternal(internalID string) (links []SyncLink) {
	return r.filter(func(l SyncLink) bool {
		return l.InternalID == internalID
	})
}

// FindByExternal returns all links bridging the external channel id
func (r *Registry) FindByExternal(externalID string) (links []SyncLink) {
	return r.filter(func(l SyncLink) bool {
		return l.ExternalID == externalID
	})
}

// All returns a copy of all links
func (r *Registry) All() (links []SyncLink) {
	return r.filter(func(l SyncLink) bool {
		return true
	})
}

func (r *Registry) filter(keep func(l SyncLink) bool) (links []SyncLink) {
	links = make([]SyncLink, 0)
	for _, l := range r.current() {
		if keep(l) {
			links = append(links, l)
		}
	}

	return links
}

func (r *Registry) current() []SyncLink {
	links, _ := r.snapshot.Load().([]SyncLink)
	return links
}

// mutate runs the load-modify-save cycle. The snapshot is only swapped if the save succeeded
func (r *Registry) mutate(modify func(links []SyncLink) ([]SyncLink, error)) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	links, err := r.load()
	if err != nil {
		return err
	}

	updated, err := modify(links)
	if err != nil {
		return err
	}

	if err = r.save(updated); err != nil {
		return err
	}

	r.snapshot.Store(updated)
	return nil
}

// load reads the persisted links. A missing entry means the bridge was never initialized
func (r *Registry) load() (links []SyncLink, err error) {
	links = make([]SyncLink, 0)

	raw, err := r.storer.GetString(r.name)
	if store.IsNotFound(err) {
		return links, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "failed to load links for [%s]", r.name)
	}

	if raw == "" {
		return links, nil
	}

	if err = json.Unmarshal([]byte(raw), &links); err != nil {
		return nil, errors.Wrapf(err, "failed to decode links for [%s]", r.name)
	}

	if r.defaultExternalTag != "" {
		for i := range links {
			if links[i].ExternalTag == ExternalTagNotInConfig {
				links[i].ExternalTag = r.defaultExternalTag
			}
		}
	}

	return links, nil
}

func (r *Registry) save(links []SyncLink) (err error) {
	raw, err := json.Marshal(links)
	if err != nil {
		return errors.Wrapf(err, "failed to encode links for [%s]", r.name)
	}

	if err = r.storer.PutString(r.name, string(raw)); err != nil {
		return errors.Wrapf(err, "failed to save links for [%s]", r.name)
	}

	return nil
}

func indexOf(links []SyncLink, internalID string, externalID string) int {
	for i, l := range links {
		if l.Matches(internalID, externalID) {
			return i
		}
	}

	return -1
}
