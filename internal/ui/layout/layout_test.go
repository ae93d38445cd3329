package layout

import (
	"strings"
	"testing"

	"charm.land/lipgloss/v2"
	"github.com/stretchr/testify/assert"
)

func TestIsTooSmall(t *testing.T) {
	assert.True(t, IsTooSmall(MinWidth-1, MinHeight))
	assert.True(t, IsTooSmall(MinWidth, MinHeight-1))
	assert.False(t, IsTooSmall(MinWidth, MinHeight))
}

func TestContentHeight(t *testing.T) {
	assert.Equal(t, 14, ContentHeight(20))
	assert.Equal(t, 0, ContentHeight(4))
}

func TestClock(t *testing.T) {
	assert.Equal(t, "0:00", Clock(0))
	assert.Equal(t, "0:00", Clock(-5))
	assert.Equal(t, "1:05", Clock(65))
	assert.Equal(t, "12:00", Clock(720))
}

func TestRenderFrame_FillsHeight(t *testing.T) {
	header := RenderHeader("potions", "0:10 / 6:00  x1", 80)
	footer := RenderFooter("q quit", 80)
	frame := RenderFrame(header, "body", footer, 80, 24)

	assert.Equal(t, 24, lipgloss.Height(frame))
	assert.Contains(t, frame, "boostbar")
	assert.Contains(t, frame, "potions")
	assert.Contains(t, frame, "0:10 / 6:00")
	assert.Contains(t, frame, "q quit")
	assert.Equal(t, 3, strings.Count(header, "\n")+1)
}
