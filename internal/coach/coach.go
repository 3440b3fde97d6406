// Package coach produces the scripted chat replies. There is no language model:
// a reply is a localized template chosen by keyword and filled from the reading.
package coach

import (
	"errors"
	"strings"
	"time"

	"github.com/tartampluch/go-cardology/internal/config"
	"github.com/tartampluch/go-cardology/internal/engine"
)

var (
	ErrPersonaUnknown   = errors.New(config.ErrPersonaUnknown)
	ErrQuestionRequired = errors.New(config.ErrQuestionRequired)
)

// ReadingContext is the template-fill data of a reply.
type ReadingContext struct {
	CardName string
	Age      int
	Forecast engine.Forecast
}

// ContextFromReading extracts the fields the templates use.
func ContextFromReading(r engine.Reading) ReadingContext {
	return ReadingContext{CardName: r.BirthCard.Name, Age: r.Age, Forecast: r.Forecast}
}

type topic struct {
	keywords []string
	key      string
}

// Topics are checked in order; the first keyword hit wins.
var personas = map[string]struct {
	greeting string
	topics   []topic
	fallback string
}{
	config.PersonaAssistant: {
		greeting: config.TKeyAssistantGreeting,
		topics: []topic{
			{[]string{"meaning", "what does"}, config.TKeyAssistantMeaning},
			{[]string{"forecast", "year"}, config.TKeyAssistantForecast},
			{[]string{"mercury", "venus", "mars"}, config.TKeyAssistantPlanets},
		},
		fallback: config.TKeyAssistantDefault,
	},
	config.PersonaCoach: {
		greeting: config.TKeyCoachGreeting,
		topics: []topic{
			{[]string{"money", "revenue", "income"}, config.TKeyCoachMoney},
			{[]string{"marketing", "brand", "audience"}, config.TKeyCoachMarketing},
			{[]string{"scale", "grow", "expand"}, config.TKeyCoachScale},
			{[]string{"stress", "burnout", "overwhelm"}, config.TKeyCoachStress},
		},
		fallback: config.TKeyCoachDefault,
	},
}

// ValidPersona reports whether p names a known persona.
func ValidPersona(p string) bool {
	_, ok := personas[p]
	return ok
}

// Topic returns the message key answering question for persona.
// Matching is a case-insensitive substring test.
func Topic(persona, question string) (string, error) {
	p, ok := personas[persona]
	if !ok {
		return "", ErrPersonaUnknown
	}
	q := strings.ToLower(question)
	for _, t := range p.topics {
		for _, kw := range t.keywords {
			if strings.Contains(q, kw) {
				return t.key, nil
			}
		}
	}
	return p.fallback, nil
}

// Responder renders replies through a Translator.
type Responder struct {
	T *Translator
}

func NewResponder(t *Translator) *Responder {
	return &Responder{T: t}
}

// Respond returns the scripted reply to question. It has no side effects.
func (r *Responder) Respond(persona, question string, rc ReadingContext) (string, error) {
	key, err := Topic(persona, question)
	if err != nil {
		return "", err
	}
	return r.T.Msg(key, r.templateData(rc)), nil
}

// Greeting returns the opening assistant message of a new conversation.
func (r *Responder) Greeting(persona string, rc ReadingContext) (string, error) {
	p, ok := personas[persona]
	if !ok {
		return "", ErrPersonaUnknown
	}
	return r.T.Msg(p.greeting, r.templateData(rc)), nil
}

// DefaultTitle is the date-stamped label of an untitled conversation.
func (r *Responder) DefaultTitle(t time.Time) string {
	layout := r.T.Msg(config.TKeyFormatDate, nil)
	return r.T.Msg(config.TKeyConversationTitle, map[string]any{"Date": t.Format(layout)})
}

// PeriodSummary and BirthdaySummary label calendar events.
func (r *Responder) PeriodSummary(planet, card string) string {
	return r.T.Msg(config.TKeyEvtPeriod, map[string]any{"Planet": planet, "Card": card})
}

func (r *Responder) BirthdaySummary(name string, age int) string {
	return r.T.Msg(config.TKeyEvtBirthday, map[string]any{"Name": name, "Age": age})
}

func (r *Responder) templateData(rc ReadingContext) map[string]any {
	name := rc.CardName
	if name == "" {
		name = r.T.Msg(config.TKeyBirthCardNoun, nil)
	}

	card := func(position string) string {
		if c, ok := rc.Forecast.Card(position); ok {
			return c
		}
		return config.PlaceholderCard
	}

	return map[string]any{
		"CardName":  name,
		"Age":       rc.Age,
		"Mercury":   card(config.PosMercury),
		"Venus":     card(config.PosVenus),
		"Mars":      card(config.PosMars),
		"Jupiter":   card(config.PosJupiter),
		"Saturn":    card(config.PosSaturn),
		"Neptune":   card(config.PosNeptune),
		"LongRange": card(config.PosLongRange),
		"Result":    card(config.PosResult),
	}
}
