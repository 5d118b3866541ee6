package apns

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReason_Classification(t *testing.T) {
	t.Run("permanent token failures", func(t *testing.T) {
		for _, r := range []Reason{ReasonUnregistered, ReasonBadDeviceToken, ReasonDeviceTokenNotForTopic} {
			assert.True(t, r.ShouldRemoveToken(), string(r))
			assert.False(t, r.Retryable(), string(r))
		}
	})

	t.Run("transient failures", func(t *testing.T) {
		for _, r := range []Reason{ReasonServiceUnavailable, ReasonInternalServerError, ReasonTooManyRequests} {
			assert.True(t, r.Retryable(), string(r))
			assert.False(t, r.ShouldRemoveToken(), string(r))
		}
	})

	t.Run("expired provider token is retryable after re-signing", func(t *testing.T) {
		assert.True(t, ReasonExpiredProviderToken.Retryable())
	})

	t.Run("configuration failures are neither", func(t *testing.T) {
		for _, r := range []Reason{ReasonBadTopic, ReasonMissingTopic, ReasonBadCollapseID, ReasonPayloadTooLarge} {
			assert.False(t, r.Retryable(), string(r))
			assert.False(t, r.ShouldRemoveToken(), string(r))
		}
	})
}

func TestReason_OpenSet(t *testing.T) {
	assert.True(t, ReasonBadDeviceToken.Known())
	assert.NotEmpty(t, ReasonBadDeviceToken.Description())

	future := Reason("SomeFutureReason")
	assert.False(t, future.Known())
	assert.Equal(t, "SomeFutureReason", future.Description())
	assert.False(t, future.ShouldRemoveToken())
	assert.False(t, future.Retryable())
}
