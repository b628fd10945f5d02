package actions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jadevit/touchctl/internal/gestures"
)

type fakeSink struct {
	clicked  []string
	scrolled []int32
	chords   [][]Key
}

func (f *fakeSink) ClickMouse(which string) error {
	f.clicked = append(f.clicked, which)
	return nil
}

func (f *fakeSink) ScrollVertical(steps int32) error {
	f.scrolled = append(f.scrolled, steps)
	return nil
}

func (f *fakeSink) KeyChord(keys []Key) error {
	f.chords = append(f.chords, keys)
	return nil
}

func TestBindingKeyMatchesGestureString(t *testing.T) {
	assert.Equal(t, "two_finger.tap", BindingKey(gestures.TwoFingerTap))
	assert.Equal(t, "pinch.scale_in", BindingKey(gestures.PinchScaleIn))
}

func TestDispatchNoopOnEmptyOrMissingBinding(t *testing.T) {
	sink := &fakeSink{}
	d := NewDispatcher(sink, new(bool), nil)

	require.NoError(t, d.Dispatch(gestures.TwoFingerTap, map[string]string{}, false))
	require.NoError(t, d.Dispatch(gestures.TwoFingerTap, map[string]string{"two_finger.tap": ""}, false))
	assert.Empty(t, sink.clicked)
}

func TestDispatchToggleFlipsEnabledFlag(t *testing.T) {
	sink := &fakeSink{}
	enabled := true
	d := NewDispatcher(sink, &enabled, nil)

	require.NoError(t, d.Dispatch(gestures.ThreeFingerTap, map[string]string{"three_finger.tap": "toggle"}, false))
	assert.False(t, enabled)
	require.NoError(t, d.Dispatch(gestures.ThreeFingerTap, map[string]string{"three_finger.tap": "toggle"}, false))
	assert.True(t, enabled)
}

func TestDispatchMouseClick(t *testing.T) {
	sink := &fakeSink{}
	d := NewDispatcher(sink, new(bool), nil)

	require.NoError(t, d.Dispatch(gestures.TwoFingerTap, map[string]string{"two_finger.tap": "mouse:middle"}, false))
	assert.Equal(t, []string{"middle"}, sink.clicked)
}

func TestDispatchScrollWithAndWithoutStepCount(t *testing.T) {
	sink := &fakeSink{}
	d := NewDispatcher(sink, new(bool), nil)

	require.NoError(t, d.Dispatch(gestures.PinchScaleOut, map[string]string{"pinch.scale_out": "scroll:vertical"}, false))
	require.NoError(t, d.Dispatch(gestures.PinchScaleIn, map[string]string{"pinch.scale_in": "scroll:vertical@-3"}, false))
	assert.Equal(t, []int32{1, -3}, sink.scrolled)
}

func TestDispatchKeyChordParsesTokensInOrder(t *testing.T) {
	sink := &fakeSink{}
	d := NewDispatcher(sink, new(bool), nil)

	require.NoError(t, d.Dispatch(gestures.PinchScaleIn, map[string]string{"pinch.scale_in": "key:CTRL+MINUS"}, false))
	require.Len(t, sink.chords, 1)
	assert.Equal(t, []Key{KeyLeftCtrl, KeyMinus}, sink.chords[0])
}

func TestDispatchCmdBlockedWithoutAllowCommands(t *testing.T) {
	sink := &fakeSink{}
	d := NewDispatcher(sink, new(bool), nil)

	err := d.Dispatch(gestures.ThreeFingerTap, map[string]string{"three_finger.tap": "cmd:notify-send hi"}, false)
	assert.Error(t, err)
}

func TestDispatchUnknownActionPrefixErrors(t *testing.T) {
	sink := &fakeSink{}
	d := NewDispatcher(sink, new(bool), nil)

	err := d.Dispatch(gestures.ThreeFingerTap, map[string]string{"three_finger.tap": "bogus:thing"}, false)
	assert.Error(t, err)
}

func TestParseKeyTokenRecognizesAliases(t *testing.T) {
	cases := map[string]Key{
		"ctrl": KeyLeftCtrl, "CONTROL": KeyLeftCtrl,
		"alt": KeyLeftAlt, "shift": KeyLeftShift,
		"super": KeyLeftMeta, "META": KeyLeftMeta, "win": KeyLeftMeta,
		"tab": KeyTab, "-": KeyMinus, "minus": KeyMinus,
		"=": KeyEqual, "equal": KeyEqual,
	}
	for tok, want := range cases {
		got, err := ParseKeyToken(tok)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseKeyToken("nonsense")
	assert.Error(t, err)
}
