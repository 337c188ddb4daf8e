package synclink_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/alexandre-normand/chatrelay/store"
	"github.com/alexandre-normand/chatrelay/store/mocks"
	"github.com/alexandre-normand/chatrelay/synclink"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T, s store.StringStorer) *synclink.Registry {
	r, err := synclink.NewRegistry("slackrelay", s)
	require.NoError(t, err)

	return r
}

func TestNewRegistryNeverInitialized(t *testing.T) {
	r := newRegistry(t, store.NewMemStore())

	assert.Empty(t, r.All())
	assert.Equal(t, "slackrelay", r.Name())
}

func TestNewRegistryLoadError(t *testing.T) {
	ms := new(mocks.Storer)
	ms.On("GetString", "slackrelay").Return("", fmt.Errorf("disk on fire"))

	_, err := synclink.NewRegistry("slackrelay", ms)
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "disk on fire")
	}
}

func TestAddAndFind(t *testing.T) {
	r := newRegistry(t, store.NewMemStore())

	require.NoError(t, r.Add(synclink.New("room1", "chanA")))
	require.NoError(t, r.Add(synclink.New("room1", "chanB")))
	require.NoError(t, r.Add(synclink.New("room2", "chanA")))

	assert.Len(t, r.FindByInternal("room1"), 2)
	assert.Len(t, r.FindByExternal("chanA"), 2)
	assert.Empty(t, r.FindByInternal("room3"))

	l, ok := r.Find("room2", "chanA")
	assert.True(t, ok)
	assert.Equal(t, synclink.New("room2", "chanA"), l)
}

func TestAddDuplicateFailsAndLeavesRegistryUnchanged(t *testing.T) {
	s := store.NewMemStore()
	r := newRegistry(t, s)

	require.NoError(t, r.Add(synclink.New("room1", "chanA")))
	before := r.All()
	persisted, err := s.GetString("slackrelay")
	require.NoError(t, err)

	dup := synclink.New("room1", "chanA")
	dup.RelayJoins = false
	err = r.Add(dup)

	if assert.Error(t, err) {
		assert.Equal(t, synclink.ErrAlreadyLinked, errors.Cause(err))
	}
	assert.Equal(t, before, r.All())
	after, err := s.GetString("slackrelay")
	require.NoError(t, err)
	assert.Equal(t, persisted, after)
}

func TestRemove(t *testing.T) {
	r := newRegistry(t, store.NewMemStore())
	require.NoError(t, r.Add(synclink.New("room1", "chanA")))

	require.NoError(t, r.Remove("room1", "chanA"))
	assert.Empty(t, r.All())

	err := r.Remove("room1", "chanA")
	if assert.Error(t, err) {
		assert.Equal(t, synclink.ErrNotLinked, errors.Cause(err))
	}
}

func TestUpdate(t *testing.T) {
	r := newRegistry(t, store.NewMemStore())
	require.NoError(t, r.Add(synclink.New("room1", "chanA")))

	err := r.Update("room1", "chanA", func(l *synclink.SyncLink) {
		l.RelayJoins = false
		l.DisplayTag = synclink.NamedTag("ops")
		l.InternalID = "sneaky"
	})
	require.NoError(t, err)

	l, ok := r.Find("room1", "chanA")
	if assert.True(t, ok) {
		assert.False(t, l.RelayJoins)
		assert.Equal(t, "ops", l.DisplayTag.Name)
	}

	err = r.Update("room9", "chanA", func(l *synclink.SyncLink) {})
	if assert.Error(t, err) {
		assert.Equal(t, synclink.ErrNotLinked, errors.Cause(err))
	}
}

func TestMutationSurvivesReload(t *testing.T) {
	s := store.NewMemStore()
	r := newRegistry(t, s)
	require.NoError(t, r.Add(synclink.New("room1", "chanA")))

	reloaded := newRegistry(t, s)
	assert.Equal(t, r.All(), reloaded.All())
}

func TestMutationPicksUpConcurrentlyPersistedLinks(t *testing.T) {
	s := store.NewMemStore()
	r1 := newRegistry(t, s)
	r2 := newRegistry(t, s)

	require.NoError(t, r1.Add(synclink.New("room1", "chanA")))
	require.NoError(t, r2.Add(synclink.New("room2", "chanB")))

	assert.Len(t, r2.All(), 2)

	require.NoError(t, r1.Reload())
	assert.Len(t, r1.All(), 2)
}

func TestPersistenceFailureLeavesSnapshotUnchanged(t *testing.T) {
	ms := new(mocks.Storer)
	ms.On("GetString", "slackrelay").Return("", store.NotFound("slackrelay"))
	ms.On("PutString", "slackrelay", mock.Anything).Return(fmt.Errorf("quota exceeded"))

	r, err := synclink.NewRegistry("slackrelay", ms)
	require.NoError(t, err)

	err = r.Add(synclink.New("room1", "chanA"))
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "quota exceeded")
	}
	assert.Empty(t, r.All())
}

func TestLoadAppliesDefaults(t *testing.T) {
	s := store.NewMemStore()
	require.NoError(t, s.PutString("slackrelay", `[{"channelid":"chanA","hangoutid":"room1","hotag":true},{"channelid":"chanB","hangoutid":"room1","hotag":"ops","sync_joins":false,"slacktag":"acme"}]`))

	r, err := synclink.NewRegistry("slackrelay", s, synclink.OptionDefaultExternalTag("Team Rocket"))
	require.NoError(t, err)

	a, ok := r.Find("room1", "chanA")
	require.True(t, ok)
	assert.Equal(t, synclink.SyncLink{InternalID: "room1", ExternalID: "chanA", DisplayTag: synclink.DerivedTag(), RelayJoins: true, RelayImages: true, UseRealNames: true, ExternalTag: "Team Rocket"}, a)

	b, ok := r.Find("room1", "chanB")
	require.True(t, ok)
	assert.False(t, b.RelayJoins)
	assert.Equal(t, synclink.NamedTag("ops"), b.DisplayTag)
	assert.Equal(t, "acme", b.ExternalTag)
}

func TestLoadCorruptedList(t *testing.T) {
	s := store.NewMemStore()
	require.NoError(t, s.PutString("slackrelay", `{not json`))

	_, err := synclink.NewRegistry("slackrelay", s)
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "failed to decode links")
	}
}

func TestConcurrentReadsDuringMutations(t *testing.T) {
	r := newRegistry(t, store.NewMemStore())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, r.Add(synclink.New(fmt.Sprintf("room%d", i), "chanA")))
		}(i)
		go func() {
			defer wg.Done()
			for _, l := range r.FindByExternal("chanA") {
				assert.Equal(t, "chanA", l.ExternalID)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, r.FindByExternal("chanA"), 20)
}
