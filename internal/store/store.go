package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tartampluch/go-cardology/internal/config"
	"github.com/tartampluch/go-cardology/internal/engine"
)

// Store owns profiles and their conversations.
// Every mutation writes both collections through Persistence and only then replaces the
// in-memory state, so a failed write leaves the previous state untouched.
type Store struct {
	mu            sync.RWMutex
	persistence   Persistence
	clock         engine.Clock
	profiles      []Profile
	conversations conversationIndex

	// NewID generates profile and conversation identifiers.
	NewID func() (string, error)

	// DefaultTitle labels conversations saved without a title.
	DefaultTitle func(time.Time) string
}

// New loads the persisted state. Missing or unreadable blobs start empty.
func New(ctx context.Context, p Persistence, clock engine.Clock) *Store {
	s := &Store{
		persistence:  p,
		clock:        clock,
		NewID:        newUUID,
		DefaultTitle: defaultTitle,
	}
	s.load(ctx)
	return s
}

func newUUID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrIDGenerate, err)
	}
	return id.String(), nil
}

func defaultTitle(t time.Time) string {
	return fmt.Sprintf(config.FallbackConversationTitle, t.Format(config.DateFormatTitle))
}

func (s *Store) load(ctx context.Context) {
	log := slog.With(config.LogKeyComponent, config.CompStore)

	profiles := loadBlob[[]Profile](ctx, log, s.persistence, config.StorageKeyProfiles)
	if profiles == nil {
		profiles = []Profile{}
	}

	convs := loadBlob[conversationIndex](ctx, log, s.persistence, config.StorageKeyConversations)
	if convs == nil {
		convs = conversationIndex{}
	}

	known := make(map[string]bool, len(profiles))
	for _, p := range profiles {
		known[p.ID] = true
	}
	for id := range convs {
		if !known[id] {
			log.Warn(config.MsgStoreOrphans, config.LogKeyProfile, id)
			delete(convs, id)
		}
	}

	s.profiles = profiles
	s.conversations = convs
	log.Info(config.MsgStoreLoaded,
		config.LogKeyProfiles, len(profiles),
		config.LogKeyCount, len(convs))
}

// loadBlob decodes the blob under key. A missing or undecodable blob yields the zero
// value; a partial decode is discarded.
func loadBlob[T any](ctx context.Context, log *slog.Logger, p Persistence, key string) T {
	var zero T
	data, err := p.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		log.Info(config.MsgStoreEmpty, config.LogKeyKey, key)
		return zero
	}
	if err != nil {
		log.Warn(config.MsgStoreCorrupt, config.LogKeyKey, key, config.LogKeyError, err)
		return zero
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		log.Warn(config.MsgStoreCorrupt, config.LogKeyKey, key, config.LogKeyError, err)
		return zero
	}
	return v
}

// commit persists the candidate state then installs it. Callers hold s.mu.
func (s *Store) commit(ctx context.Context, profiles []Profile, convs conversationIndex) error {
	pb, err := json.Marshal(profiles)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrPersistEncode, err)
	}
	cb, err := json.Marshal(convs)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrPersistEncode, err)
	}

	err = s.persistence.Save(ctx, map[string][]byte{
		config.StorageKeyProfiles:      pb,
		config.StorageKeyConversations: cb,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrPersistSave, err)
	}

	s.profiles = profiles
	s.conversations = convs
	return nil
}

// AddProfile appends a new profile and persists it.
func (s *Store) AddProfile(ctx context.Context, name, birthDate string, card engine.BirthCard, forecast engine.Forecast) (Profile, error) {
	id, err := s.NewID()
	if err != nil {
		return Profile{}, err
	}
	if forecast == nil {
		forecast = engine.Forecast{}
	}
	forecast = slices.Clone(forecast)
	p := Profile{
		ID:        id,
		Name:      name,
		BirthDate: birthDate,
		BirthCard: card,
		Forecast:  forecast,
		CreatedAt: s.clock.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	profiles := append(slices.Clip(s.profiles), p)
	if err := s.commit(ctx, profiles, s.conversations); err != nil {
		return Profile{}, err
	}

	slog.Info(config.MsgProfileAdded,
		config.LogKeyComponent, config.CompStore,
		config.LogKeyProfile, id)
	return p.clone(), nil
}

// DeleteProfile removes a profile and all its conversations in one write.
// Unknown ids are a no-op.
func (s *Store) DeleteProfile(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil
	}

	profiles := slices.Delete(slices.Clone(s.profiles), i, i+1)
	if err := s.commit(ctx, profiles, s.conversations.withBucket(id, nil)); err != nil {
		return err
	}

	slog.Info(config.MsgProfileDeleted,
		config.LogKeyComponent, config.CompStore,
		config.LogKeyProfile, id)
	return nil
}

// GetProfile returns the profile with the given id.
func (s *Store) GetProfile(id string) (Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.profiles[i].clone(), true
	}
	return Profile{}, false
}

// Profiles returns all profiles in insertion order.
func (s *Store) Profiles() []Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Profile, len(s.profiles))
	for i, p := range s.profiles {
		out[i] = p.clone()
	}
	return out
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.profiles, func(p Profile) bool { return p.ID == id })
}

// SaveConversation creates or replaces a conversation of an existing profile.
// An empty conversationID creates a new conversation. An empty title keeps the stored
// title, or falls back to DefaultTitle for new conversations.
func (s *Store) SaveConversation(ctx context.Context, profileID, conversationID string, messages []Message, title string) (Conversation, error) {
	if conversationID == "" {
		id, err := s.NewID()
		if err != nil {
			return Conversation{}, err
		}
		conversationID = id
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(profileID) < 0 {
		return Conversation{}, ErrProfileNotFound
	}

	now := s.clock.Now().UTC()
	bucket := copyBucket(s.conversations[profileID])
	title = strings.TrimSpace(title)
	if title == "" {
		if existing, ok := bucket[conversationID]; ok {
			title = existing.Title
		} else {
			title = s.DefaultTitle(now)
		}
	}

	conv := Conversation{
		ID:        conversationID,
		Messages:  append(make([]Message, 0, len(messages)), messages...),
		Title:     title,
		UpdatedAt: now,
	}
	bucket[conversationID] = conv

	if err := s.commit(ctx, s.profiles, s.conversations.withBucket(profileID, bucket)); err != nil {
		return Conversation{}, err
	}

	slog.Debug(config.MsgConvSaved,
		config.LogKeyComponent, config.CompStore,
		config.LogKeyProfile, profileID,
		config.LogKeyConversation, conversationID,
		config.LogKeyCount, len(conv.Messages))
	return conv.clone(), nil
}

// GetConversations returns a copy of the profile's conversations keyed by id.
func (s *Store) GetConversations(profileID string) map[string]Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket := s.conversations[profileID]
	out := make(map[string]Conversation, len(bucket))
	for id, c := range bucket {
		out[id] = c.clone()
	}
	return out
}

// GetConversation returns a single conversation.
func (s *Store) GetConversation(profileID, conversationID string) (Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[profileID][conversationID]
	return c.clone(), ok
}

// ListConversations returns the profile's conversations, most recently updated first.
func (s *Store) ListConversations(profileID string) []Conversation {
	s.mu.RLock()
	bucket := s.conversations[profileID]
	out := make([]Conversation, 0, len(bucket))
	for _, c := range bucket {
		out = append(out, c.clone())
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b Conversation) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// DeleteConversation removes one conversation. Missing ids are a no-op.
func (s *Store) DeleteConversation(ctx context.Context, profileID, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[profileID][conversationID]; !ok {
		return nil
	}

	bucket := copyBucket(s.conversations[profileID])
	delete(bucket, conversationID)
	if err := s.commit(ctx, s.profiles, s.conversations.withBucket(profileID, bucket)); err != nil {
		return err
	}

	slog.Debug(config.MsgConvDeleted,
		config.LogKeyComponent, config.CompStore,
		config.LogKeyProfile, profileID,
		config.LogKeyConversation, conversationID)
	return nil
}

// RenameConversation changes a conversation title. Messages and UpdatedAt are kept.
func (s *Store) RenameConversation(ctx context.Context, profileID, conversationID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[profileID][conversationID]
	if !ok {
		return ErrConversationNotFound
	}

	conv.Title = title
	bucket := copyBucket(s.conversations[profileID])
	bucket[conversationID] = conv
	if err := s.commit(ctx, s.profiles, s.conversations.withBucket(profileID, bucket)); err != nil {
		return err
	}

	slog.Debug(config.MsgConvRenamed,
		config.LogKeyComponent, config.CompStore,
		config.LogKeyProfile, profileID,
		config.LogKeyConversation, conversationID)
	return nil
}
