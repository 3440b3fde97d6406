package coach_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-cardology/internal/config"
)

// TestI18nIntegrity ensures every translation key used by the code exists in every locale.
func TestI18nIntegrity(t *testing.T) {
	keys := []string{
		config.TKeyAssistantGreeting,
		config.TKeyAssistantMeaning,
		config.TKeyAssistantForecast,
		config.TKeyAssistantPlanets,
		config.TKeyAssistantDefault,
		config.TKeyCoachGreeting,
		config.TKeyCoachMoney,
		config.TKeyCoachMarketing,
		config.TKeyCoachScale,
		config.TKeyCoachStress,
		config.TKeyCoachDefault,
		config.TKeyConversationTitle,
		config.TKeyFormatDate,
		config.TKeyEvtPeriod,
		config.TKeyEvtBirthday,
		config.TKeyBirthCardNoun,
	}

	for _, lang := range config.SupportedLanguages {
		t.Run(lang, func(t *testing.T) {
			content, err := os.ReadFile(filepath.Join("locales", "active."+lang+".json"))
			require.NoError(t, err)

			var messages map[string]string
			require.NoError(t, json.Unmarshal(content, &messages))

			for _, k := range keys {
				assert.NotEmpty(t, messages[k], "missing key %q", k)
			}
			assert.Len(t, messages, len(keys), "locale carries unused keys")
		})
	}
}
