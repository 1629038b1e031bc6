package utils

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	// config.Load refuses to run without a JWT secret
	os.Setenv("JWT_SECRET", "test-secret")
	os.Exit(m.Run())
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))
	assert.False(t, CheckPassword("", "hunter22"))
}

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken("user-1", "max", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "max", claims.Username)

	_, err = ParseToken(token + "x")
	assert.Error(t, err)
	_, err = ParseToken("not-a-jwt")
	assert.Error(t, err)
}

func TestParseExpiredToken(t *testing.T) {
	token, err := GenerateToken("user-1", "max", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestOpLock(t *testing.T) {
	userID := "lock-user"

	require.True(t, OpLockTryAcquire(userID))
	assert.False(t, OpLockTryAcquire(userID))

	OpLockRelease(userID)
	assert.True(t, OpLockTryAcquire(userID))
	OpLockRelease(userID)
}

func TestOpLockIsPerUser(t *testing.T) {
	require.True(t, OpLockTryAcquire("lock-a"))
	assert.True(t, OpLockTryAcquire("lock-b"))
	OpLockRelease("lock-a")
	OpLockRelease("lock-b")
}

func TestOpThrottle(t *testing.T) {
	userID := "throttle-user"

	// Interval is generous so the cooldown cannot lapse between the two
	// calls even when the Redis attempt has to fail over to memory.
	assert.True(t, OpThrottleTry(userID, 2*time.Second))
	assert.False(t, OpThrottleTry(userID, 2*time.Second))

	// cooldown lapses after the interval
	assert.True(t, OpThrottleTry("throttle-expiry-user", 100*time.Millisecond))
	time.Sleep(150 * time.Millisecond)
	assert.True(t, OpThrottleTry("throttle-expiry-user", 100*time.Millisecond))

	// zero interval disables the throttle
	assert.True(t, OpThrottleTry(userID, 0))
	assert.True(t, OpThrottleTry(userID, 0))
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "hello", StripHTML("<b>hello</b>"))
	assert.Equal(t, "plain", StripHTML("plain"))
	assert.NotContains(t, StripHTML(`<script>alert("x")</script>keep`), "script")
}

func TestGenerateVerificationCode(t *testing.T) {
	code := GenerateVerificationCode(6)
	assert.Len(t, code, 6)
	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9')
	}
}

func TestTokenBlacklist(t *testing.T) {
	token := "blacklist-test-token"
	assert.False(t, IsTokenBlacklisted(token))

	BlacklistToken(token, time.Now().Add(time.Hour))
	assert.True(t, IsTokenBlacklisted(token))
}

func TestCodeStoreRoundTrip(t *testing.T) {
	SaveCode(CodePurposeRegister, "a@example.com", "123456", time.Minute)

	// a register code is not accepted for password reset
	assert.False(t, VerifyAndConsumeCode(CodePurposeReset, "a@example.com", "123456"))

	assert.True(t, VerifyAndConsumeCode(CodePurposeRegister, "a@example.com", "123456"))

	// consumed: a second use fails
	assert.False(t, VerifyAndConsumeCode(CodePurposeRegister, "a@example.com", "123456"))
}

func TestCodeStoreRejectsWrongCode(t *testing.T) {
	SaveCode(CodePurposeReset, "b@example.com", "654321", time.Minute)
	assert.False(t, VerifyAndConsumeCode(CodePurposeReset, "b@example.com", "111111"))
}
