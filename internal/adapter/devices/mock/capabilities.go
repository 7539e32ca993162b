package mock

import (
	"sync"

	"github.com/auralis-music/auralis/internal/domain"
	"github.com/auralis-music/auralis/internal/ports"
)

// Capabilities is a scripted CapabilityGate. Both capabilities default to
// granted.
type Capabilities struct {
	mu      sync.RWMutex
	scan    bool
	connect bool
}

// NewCapabilities creates a gate with both capabilities granted.
func NewCapabilities() *Capabilities {
	return &Capabilities{scan: true, connect: true}
}

// SetScanGranted scripts the scan capability.
func (c *Capabilities) SetScanGranted(granted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scan = granted
}

// SetConnectGranted scripts the connect capability.
func (c *Capabilities) SetConnectGranted(granted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connect = granted
}

// EnsureScan returns a PermissionError when scan is not granted.
func (c *Capabilities) EnsureScan(op string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.scan {
		return domain.NewPermissionError(domain.CapabilityBluetoothScan, op)
	}
	return nil
}

// EnsureConnect returns a PermissionError when connect is not granted.
func (c *Capabilities) EnsureConnect(op string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connect {
		return domain.NewPermissionError(domain.CapabilityBluetoothConnect, op)
	}
	return nil
}

// Verify that Capabilities implements the CapabilityGate interface
var _ ports.CapabilityGate = (*Capabilities)(nil)
