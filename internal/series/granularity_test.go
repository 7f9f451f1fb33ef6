package series

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCadenceLiterals(t *testing.T) {
	c := CadenceFor(Gran1m)
	assert.Equal(t, 30*time.Second, c.PollInterval)
	assert.Equal(t, 500, c.FetchLimit)

	c = CadenceFor(Gran1d)
	assert.Equal(t, time.Hour, c.PollInterval)
	assert.Equal(t, 100, c.FetchLimit)
}

func TestCadenceUnknownFallsBackToShortest(t *testing.T) {
	c := CadenceFor(Granularity("13m"))
	assert.Equal(t, CadenceFor(Gran1m), c)
}

func TestParseGranularity(t *testing.T) {
	g, ok := ParseGranularity(" 1H ")
	assert.True(t, ok)
	assert.Equal(t, Gran1h, g)

	_, ok = ParseGranularity("2h")
	assert.False(t, ok)
	_, ok = ParseGranularity("")
	assert.False(t, ok)
}

func TestGranularitiesSortedByCadence(t *testing.T) {
	all := Granularities()
	assert.Len(t, all, 7)
	assert.Equal(t, Gran1m, all[0])
	assert.Equal(t, Gran1d, all[len(all)-1])
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, CadenceFor(all[i-1]).PollInterval, CadenceFor(all[i]).PollInterval)
	}
}
