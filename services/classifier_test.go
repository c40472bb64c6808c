package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"support-bot/config"
	"support-bot/models"
)

func TestClassifyTestModeShortCircuits(t *testing.T) {
	classifier := NewOpenAIClassifier(&config.Config{ClassifierAPIKey: "TEST_MODE"}, nil)

	result, err := classifier.Classify(context.Background(), "¿está activo mi comercio?", "")
	require.NoError(t, err)
	require.Equal(t, models.IntentGeneral, result.Intent)
	require.Equal(t, 1.0, result.Confidence)
	require.Contains(t, result.ResponseText, "¿está activo mi comercio?")
}

func TestNormalizeIntent(t *testing.T) {
	require.Equal(t, models.IntentStoreStatus, normalizeIntent("STORE_STATUS"))
	require.Equal(t, models.IntentStoreStatus, normalizeIntent("  store_status "))
	require.Equal(t, models.IntentStoreStatusMissing, normalizeIntent("STORE_STATUS_MISSING"))
	require.Equal(t, models.IntentEscalate, normalizeIntent("escalate"))

	// Anything unrecognized falls back to a general answer.
	require.Equal(t, models.IntentGeneral, normalizeIntent("GENERAL"))
	require.Equal(t, models.IntentGeneral, normalizeIntent("SOMETHING_NEW"))
	require.Equal(t, models.IntentGeneral, normalizeIntent(""))
}

func TestCoerceID(t *testing.T) {
	require.Equal(t, "100005336", coerceID(" 100005336 "))
	require.Equal(t, "100005336", coerceID(float64(100005336)))
	require.Equal(t, "100005336", coerceID(json.Number("100005336")))
	require.Equal(t, "", coerceID(nil))
	require.Equal(t, "", coerceID(true))
}
