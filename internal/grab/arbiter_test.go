package grab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDevice struct {
	grabs    int
	releases int
}

func (f *fakeDevice) Grab() error {
	f.grabs++
	return nil
}

func (f *fakeDevice) Release() error {
	f.releases++
	return nil
}

func TestGrabArbitrationSequence(t *testing.T) {
	var a Arbiter
	d1, d2 := &fakeDevice{}, &fakeDevice{}
	devices := []Grabber{d1, d2}

	// Finger count sequence 0,1,2,2,1,0 => grab after the first 2, ungrab
	// after dropping back below 2; exactly one grab and one ungrab total.
	sequence := []int{0, 1, 2, 2, 1, 0}
	for _, count := range sequence {
		a.Apply(count >= 2, devices)
	}

	require.Equal(t, 1, d1.grabs)
	require.Equal(t, 1, d1.releases)
	assert.Equal(t, 1, d2.grabs)
	assert.Equal(t, 1, d2.releases)
	assert.False(t, a.Grabbed())
}

func TestApplyIsNoopWhenStateAlreadyMatches(t *testing.T) {
	var a Arbiter
	d := &fakeDevice{}
	devices := []Grabber{d}

	a.Apply(false, devices)
	assert.Equal(t, 0, d.grabs)
	assert.Equal(t, 0, d.releases)
}

func TestReleaseAllAlwaysReleasesRegardlessOfState(t *testing.T) {
	var a Arbiter
	d := &fakeDevice{}
	devices := []Grabber{d}

	a.Apply(true, devices)
	require.Equal(t, 1, d.grabs)

	a.ReleaseAll(devices)
	assert.Equal(t, 1, d.releases)
	assert.False(t, a.Grabbed())
}
