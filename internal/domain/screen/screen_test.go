package screen

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/types"
)

func TestNewNormalizesRotation(t *testing.T) {
	s := New(1, "main", types.ScreenProperty{Width: 1080, Height: 2340, Rotation: types.Rotation(9)})
	assert.Equal(t, types.RotationPortrait, s.Property().Rotation)
}

func TestSetRotationSwapsExtent(t *testing.T) {
	s := New(1, "main", types.ScreenProperty{Width: 1080, Height: 2340})

	assert.True(t, s.SetRotation(types.RotationLandscape))
	p := s.Property()
	assert.Equal(t, uint32(2340), p.Width)
	assert.Equal(t, uint32(1080), p.Height)

	assert.False(t, s.SetRotation(types.RotationLandscape))
	assert.False(t, s.SetRotation(types.RotationInvalid))

	assert.True(t, s.SetRotation(types.RotationPortraitInverted))
	assert.Equal(t, uint32(1080), s.Property().Width)
}

func TestSetRelativePosition(t *testing.T) {
	s := New(2, "ext", types.ScreenProperty{Width: 1920, Height: 1080})

	dx, dy, changed := s.SetRelativePosition(1080, 0)
	assert.True(t, changed)
	assert.Equal(t, int32(1080), dx)
	assert.Equal(t, int32(0), dy)

	_, _, changed = s.SetRelativePosition(1080, 0)
	assert.False(t, changed)

	dx, dy, changed = s.SetRelativePosition(1000, 20)
	assert.True(t, changed)
	assert.Equal(t, int32(-80), dx)
	assert.Equal(t, int32(20), dy)

	x, y := s.RelativePosition()
	assert.Equal(t, int32(1000), x)
	assert.Equal(t, int32(20), y)
}

func TestConcurrentMovesSumToFinalOffset(t *testing.T) {
	s := New(2, "ext", types.ScreenProperty{Width: 1920, Height: 1080})

	var (
		wg     sync.WaitGroup
		total  atomic.Int32
		starts = make(chan struct{})
	)
	for i := int32(1); i <= 50; i++ {
		wg.Add(1)
		go func(x int32) {
			defer wg.Done()
			<-starts
			dx, _, _ := s.SetRelativePosition(x*10, 0)
			total.Add(dx)
		}(i)
	}
	close(starts)
	wg.Wait()

	x, _ := s.RelativePosition()
	assert.Equal(t, x, total.Load())
}

func TestFoldClassificationFollowsStatus(t *testing.T) {
	s := New(0, "inner", types.ScreenProperty{})
	assert.Equal(t, types.FoldDisplayModeUnknown, s.DisplayMode())

	assert.True(t, s.SetFoldStatus(types.FoldStatusFolded))
	assert.Equal(t, types.FoldDisplayModeMain, s.DisplayMode())
	assert.False(t, s.SetFoldStatus(types.FoldStatusFolded))

	s.SetFoldStatus(types.FoldStatusExpand)
	snap := s.Snapshot()
	assert.Equal(t, types.FoldStatusExpand, snap.FoldStatus)
	assert.Equal(t, types.FoldDisplayModeFull, snap.DisplayMode)
}
