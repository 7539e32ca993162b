package mock

import (
	"context"
	"sync"

	"github.com/auralis-music/auralis/internal/domain"
	"github.com/auralis-music/auralis/internal/ports"
)

// Bluetooth is a scripted BluetoothPort. Tests emit scan events directly and
// observe pair requests.
//
// Thread-safety: This implementation is thread-safe.
type Bluetooth struct {
	mu sync.Mutex

	events      chan domain.ScanEvent
	discovering bool
	closed      bool

	pairErr      error
	pairRequests []string
}

// NewBluetooth creates a scripted Bluetooth port.
func NewBluetooth() *Bluetooth {
	return &Bluetooth{
		events: make(chan domain.ScanEvent, 32),
	}
}

// SetPairError makes Pair fail immediately (for testing).
func (b *Bluetooth) SetPairError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pairErr = err
}

// StartDiscovery marks discovery active and emits a ScanDiscoveryStarted event.
func (b *Bluetooth) StartDiscovery(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.discovering {
		return domain.ErrDiscoveryActive
	}
	b.discovering = true
	b.emitLocked(domain.ScanEvent{Kind: domain.ScanDiscoveryStarted})
	return nil
}

// CancelDiscovery stops an active scan and emits ScanDiscoveryFinished.
func (b *Bluetooth) CancelDiscovery() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.discovering {
		return nil
	}
	b.discovering = false
	b.emitLocked(domain.ScanEvent{Kind: domain.ScanDiscoveryFinished})
	return nil
}

// IsDiscovering reports whether a scan is active.
func (b *Bluetooth) IsDiscovering() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.discovering
}

// Pair records the pair request. Bond progress is scripted by the test via
// EmitBondChanged.
func (b *Bluetooth) Pair(address string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pairErr != nil {
		return b.pairErr
	}
	b.pairRequests = append(b.pairRequests, address)
	return nil
}

// Events returns the scan event stream.
func (b *Bluetooth) Events() <-chan domain.ScanEvent {
	return b.events
}

// Close closes the event stream.
func (b *Bluetooth) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.closed = true
		close(b.events)
	}
	return nil
}

// EmitDeviceFound scripts a discovery hit.
func (b *Bluetooth) EmitDeviceFound(device domain.AudioDevice) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.emitLocked(domain.ScanEvent{Kind: domain.ScanDeviceFound, Device: device})
}

// EmitBondChanged scripts an external bond-state transition.
func (b *Bluetooth) EmitBondChanged(address string, bond domain.PairingStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.emitLocked(domain.ScanEvent{Kind: domain.ScanBondChanged, Address: address, Bond: bond})
}

// PairRequests returns every address Pair was called with (for testing).
func (b *Bluetooth) PairRequests() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.pairRequests...)
}

func (b *Bluetooth) emitLocked(ev domain.ScanEvent) {
	if b.closed {
		return
	}
	b.events <- ev
}

// Verify that Bluetooth implements the BluetoothPort interface
var _ ports.BluetoothPort = (*Bluetooth)(nil)
