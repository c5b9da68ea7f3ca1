package vade

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResultVariants(t *testing.T) {
	na := NotApplicable()
	assert.False(t, na.Applicable())
	_, has := na.Value()
	assert.False(t, has)
	assert.Equal(t, "not-applicable", na.String())

	ok := Success("payload")
	assert.True(t, ok.Applicable())
	value, has := ok.Value()
	assert.True(t, has)
	assert.Equal(t, "payload", value)
	assert.Equal(t, "success", ok.String())

	done := Done()
	assert.True(t, done.Applicable())
	_, has = done.Value()
	assert.False(t, has)
	assert.Equal(t, "done", done.String())
}

func TestOutcomeFailed(t *testing.T) {
	assert.False(t, Outcome{Plugin: "a"}.Failed())
	assert.True(t, Outcome{Plugin: "a", Err: assert.AnError}.Failed())
}
