package local

import "github.com/auralis-music/auralis/internal/ports"

// Capabilities is the desktop CapabilityGate. Desktop builds have no runtime
// permission model, so every capability is granted.
type Capabilities struct{}

// NewCapabilities creates the desktop capability gate.
func NewCapabilities() *Capabilities {
	return &Capabilities{}
}

// EnsureScan always grants the scan capability.
func (c *Capabilities) EnsureScan(string) error { return nil }

// EnsureConnect always grants the connect capability.
func (c *Capabilities) EnsureConnect(string) error { return nil }

// Verify that Capabilities implements the CapabilityGate interface
var _ ports.CapabilityGate = (*Capabilities)(nil)
