// Package local provides the desktop implementations of the device ports.
// Desktop builds have no mobile audio-routing subsystem, so the system port
// exposes the default output as a single builtin endpoint and accepts routing
// requests as no-ops; reconciliation and selection behave exactly as they do
// against a full platform backend.
package local

import (
	"sync"

	"github.com/auralis-music/auralis/internal/domain"
	"github.com/auralis-music/auralis/internal/ports"
)

const defaultOutputID = 0

// SystemAudio is the desktop SystemAudioPort.
type SystemAudio struct {
	mu       sync.Mutex
	routedTo *int
}

// NewSystemAudio creates the desktop system audio port.
func NewSystemAudio() *SystemAudio {
	return &SystemAudio{}
}

// EnumerateDevices reports the default output as a builtin speaker.
func (s *SystemAudio) EnumerateDevices() ([]domain.AudioDevice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := defaultOutputID
	return []domain.AudioDevice{
		{
			SystemID:       &id,
			Name:           "Speaker",
			Type:           domain.DeviceBuiltinSpeaker,
			IsActiveOutput: s.routedTo == nil || *s.routedTo == id,
			Source:         domain.SourceSystemAPI,
			IsConnectable:  true,
		},
	}, nil
}

// SetCommunicationDevice records the routing request. The speaker layer
// already follows the OS default output, so no device switch is needed.
func (s *SystemAudio) SetCommunicationDevice(systemID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if systemID != defaultOutputID {
		return domain.ErrDeviceNotFound
	}
	s.routedTo = &systemID
	return nil
}

// ClearCommunicationDevice reverts to the default output.
func (s *SystemAudio) ClearCommunicationDevice() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routedTo = nil
	return nil
}

// Verify that SystemAudio implements the SystemAudioPort interface
var _ ports.SystemAudioPort = (*SystemAudio)(nil)
