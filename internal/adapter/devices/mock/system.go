// Package mock provides scripted implementations of the device ports.
// Tests drive the reconciliation engine with these instead of real OS APIs.
package mock

import (
	"sync"

	"github.com/auralis-music/auralis/internal/domain"
	"github.com/auralis-music/auralis/internal/ports"
)

// SystemAudio is a scripted SystemAudioPort. Tests set the snapshot that the
// next enumeration returns and observe routing requests.
//
// Thread-safety: This implementation is thread-safe.
type SystemAudio struct {
	mu sync.RWMutex

	devices  []domain.AudioDevice
	enumErr  error
	routeErr error

	// lastRouted records the systemID of the most recent routing request,
	// or -1 after ClearCommunicationDevice.
	lastRouted *int
}

// NewSystemAudio creates a scripted system audio port with no devices.
func NewSystemAudio() *SystemAudio {
	return &SystemAudio{}
}

// SetDevices replaces the snapshot returned by EnumerateDevices.
func (s *SystemAudio) SetDevices(devices []domain.AudioDevice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = append([]domain.AudioDevice(nil), devices...)
}

// SetEnumerateError makes enumeration fail (for testing).
func (s *SystemAudio) SetEnumerateError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enumErr = err
}

// SetRouteError makes routing requests fail (for testing).
func (s *SystemAudio) SetRouteError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routeErr = err
}

// EnumerateDevices returns the scripted snapshot.
func (s *SystemAudio) EnumerateDevices() ([]domain.AudioDevice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.enumErr != nil {
		return nil, s.enumErr
	}
	out := make([]domain.AudioDevice, len(s.devices))
	copy(out, s.devices)
	return out, nil
}

// SetCommunicationDevice records the routing request and marks the matching
// device active in the scripted snapshot.
func (s *SystemAudio) SetCommunicationDevice(systemID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.routeErr != nil {
		return s.routeErr
	}

	id := systemID
	s.lastRouted = &id
	for i := range s.devices {
		s.devices[i].IsActiveOutput = s.devices[i].SystemID != nil && *s.devices[i].SystemID == systemID
	}
	return nil
}

// ClearCommunicationDevice reverts to the default route.
func (s *SystemAudio) ClearCommunicationDevice() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.routeErr != nil {
		return s.routeErr
	}

	s.lastRouted = nil
	for i := range s.devices {
		s.devices[i].IsActiveOutput = false
	}
	return nil
}

// LastRouted returns the systemID of the most recent routing request, or nil
// if none or cleared (for testing).
func (s *SystemAudio) LastRouted() *int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRouted
}

// Verify that SystemAudio implements the SystemAudioPort interface
var _ ports.SystemAudioPort = (*SystemAudio)(nil)
