package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetrySettled(t *testing.T) {
	assert.True(t, retrySettled(&Outcome{Drafted: true}),
		"a created draft clears the failure flag")
	assert.True(t, retrySettled(&Outcome{SkipReason: "sender matches skip rule"}),
		"a filter skip clears the failure flag")

	assert.False(t, retrySettled(&Outcome{RateLimitReason: "hourly cap reached"}),
		"a rate-limited email still needs a draft")
	assert.False(t, retrySettled(&Outcome{}))
}
