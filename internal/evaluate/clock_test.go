package evaluate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in   string
		want Clock
	}{
		{"2:30 PM", Clock{14, 30}},
		{"12:00 AM", Clock{0, 0}},
		{"12:15 PM", Clock{12, 15}},
		{"9:05", Clock{9, 5}},
		{"09:05", Clock{9, 5}},
		{"", Clock{0, 0}},
		{"-", Clock{0, 0}},
		{"/", Clock{0, 0}},
		{"  - ", Clock{0, 0}},
		{"7 AM", Clock{7, 0}},
		{"7:xx", Clock{7, 0}},
		{"xx:30", Clock{0, 30}},
		{"garbage", Clock{0, 0}},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ParseClock(c.in), "input %q", c.in)
	}
}

func TestClockMinutes(t *testing.T) {
	assert.Equal(t, 0, Clock{}.Minutes())
	assert.Equal(t, 870, Clock{14, 30}.Minutes())
}

func TestParseRange(t *testing.T) {
	rng, ok := ParseRange("09:00 - 10:30")
	assert.True(t, ok)
	assert.Equal(t, Clock{9, 0}, rng.Start)
	assert.Equal(t, Clock{10, 30}, rng.End)

	_, ok = ParseRange("09:00")
	assert.False(t, ok)
	_, ok = ParseRange("09:00 - 10:00 - 11:00")
	assert.False(t, ok)
}
