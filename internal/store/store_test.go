package store_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-cardology/internal/config"
	"github.com/tartampluch/go-cardology/internal/engine"
	"github.com/tartampluch/go-cardology/internal/store"
)

// MockPersistence records Save calls and lets tests inject failures.
type MockPersistence struct {
	mock.Mock
}

func (m *MockPersistence) Load(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *MockPersistence) Save(ctx context.Context, blobs map[string][]byte) error {
	return m.Called(ctx, blobs).Error(0)
}

var testNow = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

// newTestStore returns a store over p with a fixed clock and sequential ids.
func newTestStore(t *testing.T, p store.Persistence) *store.Store {
	t.Helper()
	s := store.New(context.Background(), p, engine.FixedClock{At: testNow})

	var mu sync.Mutex
	n := 0
	s.NewID = func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n), nil
	}
	return s
}

var (
	kingOfSpades = engine.BirthCard{Card: "K♠", Name: "King of Spades"}
	sampleSpread = engine.Forecast{{Type: config.PosLongRange, Card: "K♥"}}
)

func TestStore_AddGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, store.NewMemoryPersistence())

	p, err := s.AddProfile(ctx, "Ada", "1991-01-01", kingOfSpades, sampleSpread)
	require.NoError(t, err)

	assert.Equal(t, "id-1", p.ID)
	assert.Equal(t, testNow, p.CreatedAt)

	got, ok := s.GetProfile(p.ID)
	require.True(t, ok)
	assert.Equal(t, p, got)

	_, ok = s.GetProfile("nope")
	assert.False(t, ok)
}

func TestStore_ProfilesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, store.NewMemoryPersistence())

	for _, name := range []string{"Ada", "Grace", "Linus"} {
		_, err := s.AddProfile(ctx, name, "1991-01-01", kingOfSpades, nil)
		require.NoError(t, err)
	}

	profiles := s.Profiles()
	require.Len(t, profiles, 3)
	assert.Equal(t, "Ada", profiles[0].Name)
	assert.Equal(t, "Linus", profiles[2].Name)
	assert.NotNil(t, profiles[1].Forecast)
}

func TestStore_ReloadFromPersistence(t *testing.T) {
	ctx := context.Background()
	p := store.NewMemoryPersistence()
	s := newTestStore(t, p)

	ada, err := s.AddProfile(ctx, "Ada", "1991-01-01", kingOfSpades, sampleSpread)
	require.NoError(t, err)
	_, err = s.SaveConversation(ctx, ada.ID, "c1", []store.Message{{Role: config.RoleUser, Content: "Hi"}}, "First")
	require.NoError(t, err)

	reloaded := store.New(ctx, p, engine.FixedClock{At: testNow})

	opts := cmpopts.EquateEmpty()
	if diff := cmp.Diff(s.Profiles(), reloaded.Profiles(), opts); diff != "" {
		t.Errorf("profiles mismatch after reload (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(s.GetConversations(ada.ID), reloaded.GetConversations(ada.ID), opts); diff != "" {
		t.Errorf("conversations mismatch after reload (-want +got):\n%s", diff)
	}
}

func TestStore_DeleteProfileCascades(t *testing.T) {
	ctx := context.Background()
	p := new(MockPersistence)
	p.On("Load", mock.Anything, mock.Anything).Return(nil, store.ErrNotFound)
	p.On("Save", mock.Anything, mock.Anything).Return(nil)
	s := newTestStore(t, p)

	ada, err := s.AddProfile(ctx, "Ada", "1991-01-01", kingOfSpades, nil)
	require.NoError(t, err)
	grace, err := s.AddProfile(ctx, "Grace", "1906-12-09", kingOfSpades, nil)
	require.NoError(t, err)
	_, err = s.SaveConversation(ctx, ada.ID, "c1", nil, "")
	require.NoError(t, err)
	_, err = s.SaveConversation(ctx, grace.ID, "c2", nil, "")
	require.NoError(t, err)

	saves := len(p.Calls)
	require.NoError(t, s.DeleteProfile(ctx, ada.ID))

	_, ok := s.GetProfile(ada.ID)
	assert.False(t, ok)
	assert.Empty(t, s.GetConversations(ada.ID))
	assert.Len(t, s.GetConversations(grace.ID), 1, "other profiles are untouched")

	// One Save call carrying both keys.
	require.Len(t, p.Calls, saves+1)
	blobs := p.Calls[saves].Arguments.Get(1).(map[string][]byte)
	assert.Contains(t, blobs, config.StorageKeyProfiles)
	assert.Contains(t, blobs, config.StorageKeyConversations)

	var persisted map[string]map[string]store.Conversation
	require.NoError(t, json.Unmarshal(blobs[config.StorageKeyConversations], &persisted))
	assert.NotContains(t, persisted, ada.ID)
	assert.Contains(t, persisted, grace.ID)
}

func TestStore_DeleteUnknownProfileIsNoop(t *testing.T) {
	p := new(MockPersistence)
	p.On("Load", mock.Anything, mock.Anything).Return(nil, store.ErrNotFound)
	s := newTestStore(t, p)

	require.NoError(t, s.DeleteProfile(context.Background(), "ghost"))
	p.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestStore_FailedSaveKeepsState(t *testing.T) {
	ctx := context.Background()
	p := new(MockPersistence)
	p.On("Load", mock.Anything, mock.Anything).Return(nil, store.ErrNotFound)
	p.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
	p.On("Save", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	s := newTestStore(t, p)

	ada, err := s.AddProfile(ctx, "Ada", "1991-01-01", kingOfSpades, nil)
	require.NoError(t, err)

	_, err = s.AddProfile(ctx, "Grace", "1906-12-09", kingOfSpades, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrPersistSave)
	assert.Contains(t, err.Error(), "disk full")
	assert.Len(t, s.Profiles(), 1)

	require.Error(t, s.DeleteProfile(ctx, ada.ID))
	_, ok := s.GetProfile(ada.ID)
	assert.True(t, ok, "profile survives a failed delete")
}

func TestStore_CorruptBlobsStartEmpty(t *testing.T) {
	tests := []struct {
		name     string
		profiles []byte
		convs    []byte
	}{
		{"SyntaxError", []byte("{not json"), []byte("[")},
		{"WrongFieldType", []byte(`[{"id":"a","name":5},{"id":"b","name":"Bo"}]`), []byte(`{"b":{"c1":{"id":"c1","messages":"oops"}}}`)},
		{"WrongShape", []byte(`{"id":"a"}`), []byte(`[]`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := new(MockPersistence)
			p.On("Load", mock.Anything, config.StorageKeyProfiles).Return(tt.profiles, nil)
			p.On("Load", mock.Anything, config.StorageKeyConversations).Return(tt.convs, nil)

			s := newTestStore(t, p)

			assert.NotNil(t, s.Profiles())
			assert.Empty(t, s.Profiles(), "a partial decode is discarded")
			assert.Empty(t, s.GetConversations("b"))
		})
	}
}

func TestStore_UnreadableBlobStartsEmpty(t *testing.T) {
	p := new(MockPersistence)
	p.On("Load", mock.Anything, mock.Anything).Return(nil, errors.New("io error"))

	s := newTestStore(t, p)
	assert.Empty(t, s.Profiles())
	assert.Empty(t, s.GetConversations("any"))
}

// TestStore_FileFailedDeleteLeavesDiskUntouched breaks the state file during a cascade
// delete and checks that neither collection changed on disk.
func TestStore_FileFailedDeleteLeavesDiskUntouched(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p, err := store.NewFilePersistence(dir)
	require.NoError(t, err)
	s := newTestStore(t, p)

	ada, err := s.AddProfile(ctx, "Ada", "1991-01-01", kingOfSpades, sampleSpread)
	require.NoError(t, err)
	_, err = s.SaveConversation(ctx, ada.ID, "c1", []store.Message{{Role: config.RoleUser, Content: "Hi"}}, "First")
	require.NoError(t, err)

	// Swap the state file for a non-empty directory so the next save cannot replace it.
	state := filepath.Join(dir, config.StateFileName)
	backup := state + ".bak"
	require.NoError(t, os.Rename(state, backup))
	require.NoError(t, os.MkdirAll(filepath.Join(state, "blocker"), config.DirPermUserRWX))

	require.Error(t, s.DeleteProfile(ctx, ada.ID))
	_, ok := s.GetProfile(ada.ID)
	assert.True(t, ok, "memory keeps the profile")

	require.NoError(t, os.RemoveAll(state))
	require.NoError(t, os.Rename(backup, state))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no per-collection files were written")

	reloaded := store.New(ctx, p, engine.FixedClock{At: testNow})
	_, ok = reloaded.GetProfile(ada.ID)
	assert.True(t, ok)
	assert.Len(t, reloaded.GetConversations(ada.ID), 1, "conversations are still on disk")
}

func TestStore_ReadsReturnCopies(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, store.NewMemoryPersistence())

	spread := engine.Forecast{{Type: config.PosLongRange, Card: "K♥"}}
	ada, err := s.AddProfile(ctx, "Ada", "1991-01-01", kingOfSpades, spread)
	require.NoError(t, err)
	_, err = s.SaveConversation(ctx, ada.ID, "c1", []store.Message{{Role: config.RoleUser, Content: "Hi"}}, "First")
	require.NoError(t, err)

	spread[0].Card = "argument"
	ada.Forecast[0].Card = "returned"
	got, _ := s.GetProfile(ada.ID)
	got.Forecast[0].Card = "get"
	s.Profiles()[0].Forecast[0].Card = "list"

	conv, _ := s.GetConversation(ada.ID, "c1")
	conv.Messages[0].Content = "get"
	s.ListConversations(ada.ID)[0].Messages[0].Content = "list"
	s.GetConversations(ada.ID)["c1"].Messages[0].Content = "map"

	fresh, ok := s.GetProfile(ada.ID)
	require.True(t, ok)
	assert.Equal(t, "K♥", fresh.Forecast[0].Card)

	freshConv, ok := s.GetConversation(ada.ID, "c1")
	require.True(t, ok)
	assert.Equal(t, "Hi", freshConv.Messages[0].Content)
}

func TestStore_OrphanBucketsDropped(t *testing.T) {
	ctx := context.Background()
	p := store.NewMemoryPersistence()
	require.NoError(t, p.Save(ctx, map[string][]byte{
		config.StorageKeyProfiles:      []byte(`[{"id":"p1","name":"Ada","birthDate":"1991-01-01"}]`),
		config.StorageKeyConversations: []byte(`{"p1":{"c1":{"id":"c1","title":"kept"}},"ghost":{"c2":{"id":"c2"}}}`),
	}))

	s := newTestStore(t, p)
	assert.Len(t, s.GetConversations("p1"), 1)
	assert.Empty(t, s.GetConversations("ghost"))

	// The next write no longer carries the orphan.
	_, err := s.SaveConversation(ctx, "p1", "c3", nil, "new")
	require.NoError(t, err)
	raw, err := p.Load(ctx, config.StorageKeyConversations)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "ghost")
}

func TestStore_SaveConversation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, store.NewMemoryPersistence())
	ada, err := s.AddProfile(ctx, "Ada", "1991-01-01", kingOfSpades, nil)
	require.NoError(t, err)

	msgs := []store.Message{
		{Role: config.RoleUser, Content: "What does my card mean?"},
		{Role: config.RoleAssistant, Content: "Mastery."},
	}

	t.Run("DefaultTitle", func(t *testing.T) {
		c, err := s.SaveConversation(ctx, ada.ID, "c1", msgs, "")
		require.NoError(t, err)
		assert.Equal(t, "Conversation 6/1/2025", c.Title)
		assert.Equal(t, testNow, c.UpdatedAt)
		assert.Equal(t, msgs, c.Messages)
	})

	t.Run("UpdateKeepsTitle", func(t *testing.T) {
		require.NoError(t, s.RenameConversation(ctx, ada.ID, "c1", "Card meaning"))

		c, err := s.SaveConversation(ctx, ada.ID, "c1", append(msgs, store.Message{Role: config.RoleUser, Content: "Thanks"}), "")
		require.NoError(t, err)
		assert.Equal(t, "Card meaning", c.Title)
		assert.Len(t, c.Messages, 3)
		assert.Len(t, s.GetConversations(ada.ID), 1, "upsert does not duplicate")
	})

	t.Run("GeneratedID", func(t *testing.T) {
		c, err := s.SaveConversation(ctx, ada.ID, "", nil, "Fresh")
		require.NoError(t, err)
		assert.NotEmpty(t, c.ID)
		assert.NotNil(t, c.Messages)
	})

	t.Run("InjectedTitle", func(t *testing.T) {
		s.DefaultTitle = func(t time.Time) string { return "Conversation du " + t.Format("02/01/2006") }
		c, err := s.SaveConversation(ctx, ada.ID, "c9", nil, "  ")
		require.NoError(t, err)
		assert.Equal(t, "Conversation du 01/06/2025", c.Title)
	})

	t.Run("UnknownProfile", func(t *testing.T) {
		_, err := s.SaveConversation(ctx, "ghost", "c1", msgs, "")
		assert.ErrorIs(t, err, store.ErrProfileNotFound)
		assert.Empty(t, s.GetConversations("ghost"), "no orphan bucket is created")
	})
}

func TestStore_RenameConversation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, store.NewMemoryPersistence())
	ada, err := s.AddProfile(ctx, "Ada", "1991-01-01", kingOfSpades, nil)
	require.NoError(t, err)
	original, err := s.SaveConversation(ctx, ada.ID, "c1", []store.Message{{Role: config.RoleUser, Content: "Hi"}}, "Old")
	require.NoError(t, err)

	require.NoError(t, s.RenameConversation(ctx, ada.ID, "c1", "New"))

	got, ok := s.GetConversation(ada.ID, "c1")
	require.True(t, ok)
	assert.Equal(t, "New", got.Title)
	assert.Equal(t, original.Messages, got.Messages)
	assert.Equal(t, original.UpdatedAt, got.UpdatedAt)

	assert.ErrorIs(t, s.RenameConversation(ctx, ada.ID, "missing", "x"), store.ErrConversationNotFound)
	assert.ErrorIs(t, s.RenameConversation(ctx, "ghost", "c1", "x"), store.ErrConversationNotFound)
}

func TestStore_DeleteConversation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, store.NewMemoryPersistence())
	ada, err := s.AddProfile(ctx, "Ada", "1991-01-01", kingOfSpades, nil)
	require.NoError(t, err)
	_, err = s.SaveConversation(ctx, ada.ID, "c1", nil, "")
	require.NoError(t, err)

	require.NoError(t, s.DeleteConversation(ctx, ada.ID, "c1"))
	assert.Empty(t, s.GetConversations(ada.ID))

	assert.NoError(t, s.DeleteConversation(ctx, ada.ID, "c1"), "missing conversation is a no-op")
	assert.NoError(t, s.DeleteConversation(ctx, "ghost", "c1"))
}

type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

func TestStore_ListConversationsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := store.New(ctx, store.NewMemoryPersistence(), &steppingClock{now: testNow})

	ada, err := s.AddProfile(ctx, "Ada", "1991-01-01", kingOfSpades, nil)
	require.NoError(t, err)
	for _, id := range []string{"a", "b", "c"} {
		_, err := s.SaveConversation(ctx, ada.ID, id, nil, id)
		require.NoError(t, err)
	}
	// Touching "a" moves it to the front.
	_, err = s.SaveConversation(ctx, ada.ID, "a", nil, "")
	require.NoError(t, err)

	list := s.ListConversations(ada.ID)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"a", "c", "b"}, []string{list[0].ID, list[1].ID, list[2].ID})

	assert.NotNil(t, s.ListConversations("ghost"))
}

func TestStore_ConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, store.NewMemoryPersistence())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.AddProfile(ctx, fmt.Sprintf("p%d", i), "1991-01-01", kingOfSpades, nil)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.Profiles(), 20)
}
