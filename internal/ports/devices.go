// Package ports defines the OS-facing device boundaries.
// Platform callback APIs are wrapped here so the reconciliation engine only
// ever sees typed snapshots and event streams.
package ports

import (
	"context"

	"github.com/auralis-music/auralis/internal/domain"
)

// SystemAudioPort is the OS audio subsystem boundary. Enumeration is a
// synchronous snapshot; the snapshot marks which endpoint is the OS's current
// communication device.
type SystemAudioPort interface {
	// EnumerateDevices returns the OS's current view of available outputs.
	EnumerateDevices() ([]domain.AudioDevice, error)

	// SetCommunicationDevice asks the OS to route output to the device with
	// the given system ID. The OS may refuse or pick a different device; the
	// caller must re-enumerate to learn the actual result.
	SetCommunicationDevice(systemID int) error

	// ClearCommunicationDevice reverts routing to the OS default.
	ClearCommunicationDevice() error
}

// BluetoothPort is the Bluetooth discovery/pairing boundary.
//
// StartDiscovery is asynchronous: results arrive on Events as typed
// domain.ScanEvent values, unordered relative to system enumeration. The
// adapter is responsible for translating platform callbacks into these events.
type BluetoothPort interface {
	// StartDiscovery begins a scan. Returns domain.ErrDiscoveryActive if a
	// scan is already running.
	StartDiscovery(ctx context.Context) error

	// CancelDiscovery stops an in-progress scan. Cancelling when no scan is
	// active is a no-op.
	CancelDiscovery() error

	// IsDiscovering reports whether a scan is currently active.
	IsDiscovering() bool

	// Pair initiates bonding with the device at the given address. Completion
	// is reported asynchronously via a ScanBondChanged event.
	Pair(address string) error

	// Events returns the stream of scan events. The channel is owned by the
	// adapter and closed on Close.
	Events() <-chan domain.ScanEvent

	// Close releases adapter resources and closes the event stream.
	Close() error
}

// CapabilityGate is the single permission checkpoint invoked before any
// discovery or routing operation. Checks are preconditions, never scattered
// inline through discovery code.
type CapabilityGate interface {
	// EnsureScan returns a *domain.PermissionError when the scan capability
	// is not granted. Missing scan capability is fatal to discovery.
	EnsureScan(op string) error

	// EnsureConnect returns a *domain.PermissionError when the connect
	// capability is not granted. Discovery degrades gracefully without it.
	EnsureConnect(op string) error
}
