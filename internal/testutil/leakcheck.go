// Package testutil provides testing utilities for the Auralis player core.
package testutil

import (
	"testing"

	"go.uber.org/goleak"
)

// VerifyNoLeaks should be deferred at the start of tests that spawn goroutines.
// It verifies that no goroutines were leaked during the test.
func VerifyNoLeaks(t *testing.T, opts ...goleak.Option) {
	t.Helper()
	goleak.VerifyNone(t, opts...)
}

// IgnoreSpeakerGoroutines returns goleak options to ignore the audio output
// goroutines the speaker layer keeps alive for the process lifetime.
// Use this when testing components backed by the real decode engine.
func IgnoreSpeakerGoroutines() []goleak.Option {
	return []goleak.Option{
		goleak.IgnoreAnyFunction("github.com/gopxl/beep/speaker.Init"),
		goleak.IgnoreAnyFunction("github.com/ebitengine/oto/v3.(*context).loop"),
	}
}
