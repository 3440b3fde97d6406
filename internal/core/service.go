// Package core ties the lookup engine, the profile store and the scripted coach
// together behind the operations exposed by the HTTP API and the CLI.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/tartampluch/go-cardology/internal/coach"
	"github.com/tartampluch/go-cardology/internal/config"
	"github.com/tartampluch/go-cardology/internal/engine"
	"github.com/tartampluch/go-cardology/internal/store"
)

// ErrInvalidInput marks errors caused by the caller's input.
var ErrInvalidInput = errors.New(config.ErrInvalidInput)

func invalid(msg string) error {
	return fmt.Errorf("%s: %w", msg, ErrInvalidInput)
}

// ImportResult summarizes a vCard import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// ChatResult is the reply of one chat turn and the saved conversation.
type ChatResult struct {
	Reply        string             `json:"reply"`
	Conversation store.Conversation `json:"conversation"`
}

type CardologyService struct {
	reader     *engine.Reader
	store      *store.Store
	responder  *coach.Responder
	exporter   *engine.CalendarExporter
	replyDelay time.Duration
}

func NewCardologyService(reader *engine.Reader, st *store.Store, responder *coach.Responder, exporter *engine.CalendarExporter, replyDelay time.Duration) *CardologyService {
	return &CardologyService{
		reader:     reader,
		store:      st,
		responder:  responder,
		exporter:   exporter,
		replyDelay: replyDelay,
	}
}

// Reading computes a reading without saving anything.
func (s *CardologyService) Reading(name, birthDate string) (engine.Reading, error) {
	birth, err := parseBirthDate(birthDate)
	if err != nil {
		return engine.Reading{}, err
	}
	return s.reader.Read(strings.TrimSpace(name), birth), nil
}

func parseBirthDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, invalid(config.ErrBirthDateRequired)
	}
	birth, err := engine.ParseBirthDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", err, ErrInvalidInput)
	}
	return birth, nil
}

// CreateProfile resolves the reading for a birthdate and saves it as a profile.
func (s *CardologyService) CreateProfile(ctx context.Context, name, birthDate string) (store.Profile, engine.Reading, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Profile{}, engine.Reading{}, invalid(config.ErrNameRequired)
	}
	reading, err := s.Reading(name, birthDate)
	if err != nil {
		return store.Profile{}, engine.Reading{}, err
	}

	p, err := s.store.AddProfile(ctx, name, reading.BirthDate, reading.BirthCard, reading.Forecast)
	if err != nil {
		return store.Profile{}, engine.Reading{}, err
	}
	return p, reading, nil
}

func (s *CardologyService) Profiles() []store.Profile {
	return s.store.Profiles()
}

func (s *CardologyService) Profile(id string) (store.Profile, error) {
	p, ok := s.store.GetProfile(id)
	if !ok {
		return store.Profile{}, store.ErrProfileNotFound
	}
	return p, nil
}

func (s *CardologyService) DeleteProfile(ctx context.Context, id string) error {
	return s.store.DeleteProfile(ctx, id)
}

// ProfileReading recomputes a saved profile's reading for today.
func (s *CardologyService) ProfileReading(id string) (engine.Reading, error) {
	p, birth, err := s.profileBirth(id)
	if err != nil {
		return engine.Reading{}, err
	}
	return s.reader.Read(p.Name, birth), nil
}

func (s *CardologyService) profileBirth(id string) (store.Profile, time.Time, error) {
	p, err := s.Profile(id)
	if err != nil {
		return store.Profile{}, time.Time{}, err
	}
	birth, err := engine.ParseBirthDate(p.BirthDate)
	if err != nil {
		return store.Profile{}, time.Time{}, err
	}
	return p, birth, nil
}

// ImportProfiles creates one profile per vCard contact with a full birthdate.
func (s *CardologyService) ImportProfiles(ctx context.Context, r io.Reader) (ImportResult, error) {
	contacts, stats, err := engine.ReadContacts(ctx, r)
	if err != nil {
		return ImportResult{}, fmt.Errorf("%w: %w", err, ErrInvalidInput)
	}

	res := ImportResult{Skipped: stats.Skipped}
	for _, c := range contacts {
		reading := s.reader.Read(c.Name, c.BirthDate)
		if _, err := s.store.AddProfile(ctx, c.Name, reading.BirthDate, reading.BirthCard, reading.Forecast); err != nil {
			return res, err
		}
		res.Imported++
	}
	return res, nil
}

func (s *CardologyService) Conversations(profileID string) ([]store.Conversation, error) {
	if _, err := s.Profile(profileID); err != nil {
		return nil, err
	}
	return s.store.ListConversations(profileID), nil
}

func (s *CardologyService) SaveConversation(ctx context.Context, profileID, conversationID string, messages []store.Message, title string) (store.Conversation, error) {
	return s.store.SaveConversation(ctx, profileID, conversationID, messages, title)
}

func (s *CardologyService) RenameConversation(ctx context.Context, profileID, conversationID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return invalid(config.ErrTitleRequired)
	}
	return s.store.RenameConversation(ctx, profileID, conversationID, title)
}

func (s *CardologyService) DeleteConversation(ctx context.Context, profileID, conversationID string) error {
	return s.store.DeleteConversation(ctx, profileID, conversationID)
}

// Chat answers one question for a profile. A blank conversationID starts a new
// conversation seeded with the persona greeting. The turn is saved only once the
// reply has been produced.
func (s *CardologyService) Chat(ctx context.Context, profileID, conversationID, persona, question string) (ChatResult, error) {
	if persona == "" {
		persona = config.DefaultPersona
	}
	if !coach.ValidPersona(persona) {
		return ChatResult{}, fmt.Errorf("%w: %w", coach.ErrPersonaUnknown, ErrInvalidInput)
	}
	if strings.TrimSpace(question) == "" {
		return ChatResult{}, fmt.Errorf("%w: %w", coach.ErrQuestionRequired, ErrInvalidInput)
	}

	reading, err := s.ProfileReading(profileID)
	if err != nil {
		return ChatResult{}, err
	}

	var history []store.Message
	if conversationID != "" {
		if conv, ok := s.store.GetConversation(profileID, conversationID); ok {
			history = conv.Messages
		}
	}

	session, err := coach.NewSession(s.responder, persona, coach.ContextFromReading(reading), s.replyDelay, history)
	if err != nil {
		return ChatResult{}, err
	}
	defer session.Close()

	reply, err := session.Ask(ctx, question)
	if err != nil {
		return ChatResult{}, err
	}

	conv, err := s.store.SaveConversation(ctx, profileID, conversationID, session.Messages(), "")
	if err != nil {
		return ChatResult{}, err
	}

	slog.Debug(config.MsgReplySent,
		config.LogKeyComponent, config.CompCore,
		config.LogKeyProfile, profileID,
		config.LogKeyConversation, conv.ID,
		config.LogKeyPersona, persona)
	return ChatResult{Reply: reply, Conversation: conv}, nil
}

// ProfileCalendar renders the profile's current planetary cycle as iCalendar data.
func (s *CardologyService) ProfileCalendar(profileID string) ([]byte, error) {
	p, birth, err := s.profileBirth(profileID)
	if err != nil {
		return nil, err
	}
	return s.exporter.Export(engine.CalendarInput{
		UID:     p.ID,
		Name:    p.Name,
		Birth:   birth,
		Periods: s.reader.Periods.ResolveAll(engine.DateKey(birth)),
	})
}
