// Package domain defines the audio output device model.
package domain

import "fmt"

// DeviceType classifies an audio output endpoint.
type DeviceType int

const (
	DeviceUnknown DeviceType = iota
	DeviceBuiltinSpeaker
	DeviceBuiltinEarpiece
	DeviceWiredHeadset
	DeviceWiredHeadphones
	DeviceBluetoothA2DP
	DeviceBluetoothSCO
	DeviceHearingAid
	DeviceUSBAudio
)

// String returns a human-readable representation of the device type.
func (t DeviceType) String() string {
	switch t {
	case DeviceBuiltinSpeaker:
		return "builtin_speaker"
	case DeviceBuiltinEarpiece:
		return "builtin_earpiece"
	case DeviceWiredHeadset:
		return "wired_headset"
	case DeviceWiredHeadphones:
		return "wired_headphones"
	case DeviceBluetoothA2DP:
		return "bluetooth_a2dp"
	case DeviceBluetoothSCO:
		return "bluetooth_sco"
	case DeviceHearingAid:
		return "hearing_aid"
	case DeviceUSBAudio:
		return "usb_audio"
	default:
		return "unknown"
	}
}

// DeviceTypeFromString is the inverse of DeviceType.String. Unrecognized
// names map to DeviceUnknown, matching how a persisted preference from a
// newer build degrades on an older one.
func DeviceTypeFromString(s string) DeviceType {
	for t := DeviceBuiltinSpeaker; t <= DeviceUSBAudio; t++ {
		if t.String() == s {
			return t
		}
	}
	return DeviceUnknown
}

// PairingStatus tracks a device through the pairing state machine:
// None -> Pairing -> Paired, or None -> Pairing -> PairingFailed.
// Paired -> None happens when a bond is removed externally.
type PairingStatus int

const (
	PairingNone PairingStatus = iota
	PairingInProgress
	Paired
	PairingFailed
)

// String returns a human-readable representation of the pairing status.
func (s PairingStatus) String() string {
	switch s {
	case PairingInProgress:
		return "pairing"
	case Paired:
		return "paired"
	case PairingFailed:
		return "failed"
	default:
		return "none"
	}
}

// DeviceSource identifies which discovery path produced a device record.
type DeviceSource int

const (
	SourceSystemAPI DeviceSource = iota
	SourceBluetoothDiscovery
)

// String returns a human-readable representation of the device source.
func (s DeviceSource) String() string {
	if s == SourceBluetoothDiscovery {
		return "bluetooth_discovery"
	}
	return "system_api"
}

// DeviceSourceFromString is the inverse of DeviceSource.String.
func DeviceSourceFromString(v string) DeviceSource {
	if v == "bluetooth_discovery" {
		return SourceBluetoothDiscovery
	}
	return SourceSystemAPI
}

// AudioDevice describes one candidate audio output endpoint and its
// provenance. Records are ephemeral: they are rebuilt on every device-list
// refresh and never persisted, except for the user's preferred device which
// survives restarts as a serialized subset in settings.
type AudioDevice struct {
	// SystemID is the OS audio subsystem identifier (nil if the device is
	// only known through Bluetooth discovery)
	SystemID *int

	// Name is the display string shown to the user
	Name string

	// Type classifies the endpoint
	Type DeviceType

	// RawSystemType is the opaque platform device-type code, kept for
	// diagnostics only
	RawSystemType int

	// Address is the MAC-like identifier for Bluetooth-sourced devices.
	// When present it is the primary de-duplication key.
	Address string

	// IsActiveOutput is true when the OS reports this endpoint as the
	// current communication device
	IsActiveOutput bool

	// PairingStatus is the device's position in the pairing state machine
	PairingStatus PairingStatus

	// Source records which discovery path produced this record
	Source DeviceSource

	// IsConnectable is false for endpoints that cannot be routed to
	IsConnectable bool
}

// Key returns the device's identity. Two records with the same key describe
// the same physical device and must be merged, never duplicated, in any
// user-facing list.
func (d AudioDevice) Key() string {
	if d.Address != "" {
		return d.Address
	}
	id := -1
	if d.SystemID != nil {
		id = *d.SystemID
	}
	return fmt.Sprintf("system_%d_%d", id, d.RawSystemType)
}

// IsBluetooth reports whether the endpoint is a Bluetooth transport.
func (d AudioDevice) IsBluetooth() bool {
	return d.Type == DeviceBluetoothA2DP || d.Type == DeviceBluetoothSCO
}
