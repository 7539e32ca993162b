package local

import (
	"context"
	"sync"

	"github.com/auralis-music/auralis/internal/domain"
	"github.com/auralis-music/auralis/internal/ports"
)

// Bluetooth is the desktop BluetoothPort. Desktop builds carry no Bluetooth
// discovery backend, so a scan starts and immediately finishes with no
// results, and pairing is rejected. The reconciliation engine handles both
// paths the same way it handles an empty scan on a phone.
type Bluetooth struct {
	mu     sync.Mutex
	events chan domain.ScanEvent
	closed bool
}

// NewBluetooth creates the desktop Bluetooth port.
func NewBluetooth() *Bluetooth {
	return &Bluetooth{events: make(chan domain.ScanEvent, 8)}
}

// StartDiscovery emits an empty scan session.
func (b *Bluetooth) StartDiscovery(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return domain.ErrNotInitialized
	}

	b.events <- domain.ScanEvent{Kind: domain.ScanDiscoveryStarted}
	b.events <- domain.ScanEvent{Kind: domain.ScanDiscoveryFinished}
	return nil
}

// CancelDiscovery is a no-op; sessions finish instantly.
func (b *Bluetooth) CancelDiscovery() error {
	return nil
}

// IsDiscovering always reports false; sessions finish instantly.
func (b *Bluetooth) IsDiscovering() bool {
	return false
}

// Pair rejects bonding; there is no Bluetooth backend to bond through.
func (b *Bluetooth) Pair(address string) error {
	return domain.NewDeviceError("pair", address, "bluetooth pairing is not available on this platform", domain.ErrDeviceNotConnectable)
}

// Events returns the scan event stream.
func (b *Bluetooth) Events() <-chan domain.ScanEvent {
	return b.events
}

// Close shuts the event stream down.
func (b *Bluetooth) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.closed = true
		close(b.events)
	}
	return nil
}

// Verify that Bluetooth implements the BluetoothPort interface
var _ ports.BluetoothPort = (*Bluetooth)(nil)
