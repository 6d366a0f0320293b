package models_test

import (
	"testing"

	"github.com/edlume/authtrail/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailureReasonValid(t *testing.T) {
	assert.True(t, models.FailureInvalidCredentials.Valid())
	assert.True(t, models.FailureWhatsAppNotVerified.Valid())
	assert.False(t, models.FailureReason("").Valid())
	assert.False(t, models.FailureReason("invalid_credentials").Valid())
}

func TestLoginMethodValid(t *testing.T) {
	assert.True(t, models.MethodEmailPassword.Valid())
	assert.True(t, models.MethodTokenRefresh.Valid())
	assert.True(t, models.MethodAdminLogin.Valid())
	assert.False(t, models.LoginMethod("SSO").Valid())
}

func TestSuspiciousReasonValid(t *testing.T) {
	assert.True(t, models.ReasonMultipleFailedAttempts.Valid())
	assert.True(t, models.ReasonBruteForcePattern.Valid())
	assert.False(t, models.SuspiciousReason("SOMETHING_ELSE").Valid())
}

func TestAttemptMetadataScan(t *testing.T) {
	var metadata models.AttemptMetadata
	err := metadata.Scan([]byte(`{"origin":"mobile_app","client":"2.4.1"}`))
	require.NoError(t, err)
	assert.Equal(t, "mobile_app", metadata["origin"])
	assert.Equal(t, "2.4.1", metadata["client"])
}

func TestAttemptMetadataScanNil(t *testing.T) {
	metadata := models.AttemptMetadata{"stale": "value"}
	require.NoError(t, metadata.Scan(nil))
	assert.Nil(t, metadata)
}

func TestAttemptMetadataScanRejectsNonBytes(t *testing.T) {
	var metadata models.AttemptMetadata
	assert.Error(t, metadata.Scan(42))
}

func TestAttemptMetadataValue(t *testing.T) {
	value, err := models.AttemptMetadata{"origin": "web"}.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"origin":"web"}`, string(value.([]byte)))

	value, err = models.AttemptMetadata(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, value)
}
