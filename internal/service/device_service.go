package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/auralis-music/auralis/internal/domain"
	"github.com/auralis-music/auralis/internal/ports"
)

// defaultDiscoveryTimeout bounds one Bluetooth discovery session.
const defaultDiscoveryTimeout = 15 * time.Second

// DeviceService reconciles the OS audio-device enumeration with Bluetooth
// discovery into one sorted, deduplicated device list, and drives the pairing
// state machine.
//
// Two caches are maintained: the system snapshot is replaced wholesale on
// every refresh, while discovered devices accumulate incrementally keyed by
// address. The merged list is recomputed and published on every update to
// either cache.
//
// All operations are thread-safe via sync.RWMutex.
type DeviceService struct {
	// Dependencies (injected)
	logger    *slog.Logger
	system    ports.SystemAudioPort
	bluetooth ports.BluetoothPort
	gate      ports.CapabilityGate
	bus       ports.EventBus

	// selectFn routes a device that became selectable: either tapped while
	// already paired, or freshly paired from a user-initiated request. Wired
	// by the session coordinator.
	selectFn func(domain.AudioDevice)

	// State
	systemDevices []domain.AudioDevice
	discovered    map[string]domain.AudioDevice // keyed by address

	// userPairRequests tracks addresses whose pairing the user's own tap
	// initiated. Only those auto-continue to selection on reaching Paired;
	// an unrelated external pairing never re-routes output.
	userPairRequests map[string]bool

	discovering     bool
	discoveryCancel context.CancelFunc
	lastError       string

	// Concurrency control
	mu               sync.RWMutex
	eventsWg         sync.WaitGroup
	discoveryTimeout time.Duration
}

// NewDeviceService creates a device service and starts consuming the
// Bluetooth scan event stream.
func NewDeviceService(
	logger *slog.Logger,
	system ports.SystemAudioPort,
	bluetooth ports.BluetoothPort,
	gate ports.CapabilityGate,
	bus ports.EventBus,
) *DeviceService {
	service := &DeviceService{
		logger:           logger,
		system:           system,
		bluetooth:        bluetooth,
		gate:             gate,
		bus:              bus,
		discovered:       make(map[string]domain.AudioDevice),
		userPairRequests: make(map[string]bool),
		discoveryTimeout: defaultDiscoveryTimeout,
	}

	logger.Debug("device service initialized")

	service.eventsWg.Add(1)
	go service.consumeScanEvents()

	return service
}

// SetSelectFunc wires the callback invoked when a device becomes selectable.
func (s *DeviceService) SetSelectFunc(fn func(domain.AudioDevice)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectFn = fn
}

// RefreshSystemDevices replaces the system snapshot with a fresh enumeration
// and publishes the recomputed merged list.
func (s *DeviceService) RefreshSystemDevices() error {
	devices, err := s.system.EnumerateDevices()
	if err != nil {
		s.publishError("failed to list audio devices", err)
		return domain.NewDeviceError("enumerate", "", "system enumeration failed", err)
	}

	s.mu.Lock()
	s.systemDevices = devices
	merged := s.mergedLocked()
	s.mu.Unlock()

	s.bus.Publish(domain.NewDeviceListUpdatedEvent(merged))
	return nil
}

// StartDiscovery begins a bounded Bluetooth discovery session. Calling it
// while a session is active is a no-op that reaffirms the discovering state.
// Missing scan capability is fatal to discovery; missing connect capability
// degrades gracefully.
func (s *DeviceService) StartDiscovery(ctx context.Context) error {
	if err := s.gate.EnsureScan("start_discovery"); err != nil {
		s.publishError("bluetooth scan permission missing", err)
		return err
	}
	if err := s.gate.EnsureConnect("start_discovery"); err != nil {
		// Discovery still proceeds; device metadata lookups may fail.
		s.logger.Warn("bluetooth connect permission missing, degrading", slog.Any("error", err))
	}

	s.mu.Lock()
	if s.discovering {
		// Single point of truth: already scanning, just reaffirm the state.
		s.mu.Unlock()
		s.bus.Publish(domain.NewDiscoveryStateEvent(true))
		return nil
	}

	scanCtx, cancel := context.WithCancel(ctx)
	s.discovering = true
	s.discoveryCancel = cancel
	timeout := s.discoveryTimeout
	s.mu.Unlock()

	if err := s.bluetooth.StartDiscovery(scanCtx); err != nil {
		cancel()
		s.mu.Lock()
		s.discovering = false
		s.discoveryCancel = nil
		s.mu.Unlock()

		s.publishError("failed to start discovery", err)
		return domain.NewDeviceError("start_discovery", "", "scan start failed", err)
	}

	s.bus.Publish(domain.NewDiscoveryStateEvent(true))

	// Auto-cancel when the session times out.
	go func() {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-scanCtx.Done():
		case <-timer.C:
			s.logger.Debug("discovery timeout reached")
			if err := s.CancelDiscovery(); err != nil {
				s.logger.Warn("discovery auto-cancel failed", slog.Any("error", err))
			}
		}
	}()

	return nil
}

// CancelDiscovery stops an active discovery session. Cancelling when no scan
// is running is a no-op, so a user-driven cancel and the timeout cannot race
// into a double-cancel.
func (s *DeviceService) CancelDiscovery() error {
	s.mu.Lock()
	if !s.discovering {
		s.mu.Unlock()
		return nil
	}
	s.discovering = false
	cancel := s.discoveryCancel
	s.discoveryCancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if err := s.bluetooth.CancelDiscovery(); err != nil {
		s.publishError("failed to cancel discovery", err)
		return domain.NewDeviceError("cancel_discovery", "", "scan cancel failed", err)
	}

	s.bus.Publish(domain.NewDiscoveryStateEvent(false))
	return nil
}

// IsDiscovering reports whether a discovery session is active.
func (s *DeviceService) IsDiscovering() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.discovering
}

// Devices returns the current merged, sorted device list.
func (s *DeviceService) Devices() []domain.AudioDevice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mergedLocked()
}

// LastError returns the sticky one-line error string, empty when clear.
func (s *DeviceService) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// SelectDevice is the user's tap on a device in the list. An unpaired
// Bluetooth device starts pairing and is selected automatically once the bond
// completes; anything already paired or non-Bluetooth is selected directly.
func (s *DeviceService) SelectDevice(key string) error {
	s.mu.Lock()
	device, ok := s.findLocked(key)
	if !ok {
		s.mu.Unlock()
		return domain.ErrDeviceNotFound
	}

	if device.IsBluetooth() && device.PairingStatus != domain.Paired {
		if err := s.gate.EnsureConnect("pair_device"); err != nil {
			s.mu.Unlock()
			s.publishError("bluetooth connect permission missing", err)
			return err
		}

		s.userPairRequests[device.Address] = true
		s.setPairingStatusLocked(device.Address, domain.PairingInProgress)
		merged := s.mergedLocked()
		s.mu.Unlock()

		s.bus.Publish(domain.NewDeviceListUpdatedEvent(merged))

		if err := s.bluetooth.Pair(device.Address); err != nil {
			s.mu.Lock()
			delete(s.userPairRequests, device.Address)
			s.setPairingStatusLocked(device.Address, domain.PairingFailed)
			merged := s.mergedLocked()
			s.mu.Unlock()

			s.bus.Publish(domain.NewDeviceListUpdatedEvent(merged))
			s.publishError("pairing failed for "+device.Name, err)
			return domain.NewDeviceError("pair", key, "pairing initiation failed", err)
		}
		return nil
	}

	selectFn := s.selectFn
	s.mu.Unlock()

	if selectFn != nil {
		selectFn(device)
	}
	return nil
}

// RouteTo asks the OS to route output to the given device. The OS may refuse
// or pick a different endpoint; callers must re-enumerate to learn the actual
// result.
func (s *DeviceService) RouteTo(device *domain.AudioDevice) error {
	if device == nil {
		if err := s.system.ClearCommunicationDevice(); err != nil {
			s.publishError("failed to reset audio output", err)
			return domain.NewDeviceError("route", "", "clear routing failed", err)
		}
		return nil
	}

	if !device.IsConnectable {
		return domain.ErrDeviceNotConnectable
	}
	if device.SystemID == nil {
		// Known only through discovery; the OS cannot route to it until it
		// shows up in the system enumeration.
		return domain.NewDeviceError("route", device.Key(), "device has no system endpoint", domain.ErrDeviceNotConnectable)
	}

	if err := s.system.SetCommunicationDevice(*device.SystemID); err != nil {
		s.publishError("failed to switch output to "+device.Name, err)
		return domain.NewDeviceError("route", device.Key(), "routing failed", err)
	}
	return nil
}

// Close cancels discovery and stops the scan event consumer.
func (s *DeviceService) Close() error {
	if err := s.CancelDiscovery(); err != nil {
		s.logger.Warn("cancel discovery on close failed", slog.Any("error", err))
	}
	err := s.bluetooth.Close()
	s.eventsWg.Wait()
	return err
}

// consumeScanEvents is the single receive loop translating the Bluetooth scan
// stream into cache updates. It exits when the adapter closes the stream.
func (s *DeviceService) consumeScanEvents() {
	defer s.eventsWg.Done()

	for event := range s.bluetooth.Events() {
		switch event.Kind {
		case domain.ScanDiscoveryStarted:
			s.mu.Lock()
			s.discovering = true
			s.mu.Unlock()
			s.bus.Publish(domain.NewDiscoveryStateEvent(true))

		case domain.ScanDiscoveryFinished:
			s.mu.Lock()
			s.discovering = false
			s.mu.Unlock()
			s.bus.Publish(domain.NewDiscoveryStateEvent(false))

		case domain.ScanDeviceFound:
			s.handleDeviceFound(event.Device)

		case domain.ScanBondChanged:
			s.handleBondChanged(event.Address, event.Bond)
		}
	}
}

// handleDeviceFound records or updates a discovered device and republishes
// the merged list.
func (s *DeviceService) handleDeviceFound(device domain.AudioDevice) {
	if device.Address == "" {
		s.logger.Warn("dropping discovered device without address", slog.String("name", device.Name))
		return
	}

	device.Source = domain.SourceBluetoothDiscovery

	s.mu.Lock()
	if existing, ok := s.discovered[device.Address]; ok {
		// Never let a re-discovery regress the pairing state machine.
		if device.PairingStatus == domain.PairingNone {
			device.PairingStatus = existing.PairingStatus
		}
	}
	s.discovered[device.Address] = device
	merged := s.mergedLocked()
	s.mu.Unlock()

	s.bus.Publish(domain.NewDeviceListUpdatedEvent(merged))
}

// handleBondChanged applies an OS bond transition to the pairing state
// machine and auto-selects the device when the user initiated the pairing.
func (s *DeviceService) handleBondChanged(address string, bond domain.PairingStatus) {
	s.mu.Lock()
	s.setPairingStatusLocked(address, bond)

	var toSelect *domain.AudioDevice
	switch bond {
	case domain.Paired:
		if s.userPairRequests[address] {
			delete(s.userPairRequests, address)
			if device, ok := s.findLocked(address); ok {
				toSelect = &device
			}
		}
	case domain.PairingFailed:
		delete(s.userPairRequests, address)
		if device, ok := s.findLocked(address); ok {
			s.lastError = "pairing failed for " + device.Name
		}
	}

	selectFn := s.selectFn
	merged := s.mergedLocked()
	s.mu.Unlock()

	s.bus.Publish(domain.NewDeviceListUpdatedEvent(merged))
	if bond == domain.PairingFailed {
		s.bus.Publish(domain.NewDeviceErrorEvent(s.LastError(), nil))
	}
	if toSelect != nil && selectFn != nil {
		selectFn(*toSelect)
	}
}

// setPairingStatusLocked updates the pairing status of the device with the
// given address in both caches.
func (s *DeviceService) setPairingStatusLocked(address string, status domain.PairingStatus) {
	if device, ok := s.discovered[address]; ok {
		device.PairingStatus = status
		s.discovered[address] = device
	}
	for i := range s.systemDevices {
		if s.systemDevices[i].Address == address {
			s.systemDevices[i].PairingStatus = status
		}
	}
}

// findLocked locates a device by identity key in the merged view.
func (s *DeviceService) findLocked(key string) (domain.AudioDevice, bool) {
	for _, device := range s.mergedLocked() {
		if device.Key() == key {
			return device, true
		}
	}
	return domain.AudioDevice{}, false
}

// mergedLocked recomputes the combined list: system devices first
// (authoritative for IsActiveOutput), discovered devices merged in by
// identity key. Discovery's pairing status wins since it is fresher; the
// system name is kept unless it is a generic placeholder.
func (s *DeviceService) mergedLocked() []domain.AudioDevice {
	merged := make([]domain.AudioDevice, len(s.systemDevices))
	copy(merged, s.systemDevices)

	byKey := make(map[string]int, len(merged))
	for i, device := range merged {
		byKey[device.Key()] = i
	}

	addresses := make([]string, 0, len(s.discovered))
	for address := range s.discovered {
		addresses = append(addresses, address)
	}
	sort.Strings(addresses)

	for _, address := range addresses {
		found := s.discovered[address]
		if i, ok := byKey[found.Key()]; ok {
			merged[i].PairingStatus = found.PairingStatus
			if isPlaceholderName(merged[i].Name) && found.Name != "" {
				merged[i].Name = found.Name
			}
			continue
		}
		merged = append(merged, found)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		ri, rj := deviceRank(merged[i]), deviceRank(merged[j])
		if ri != rj {
			return ri < rj
		}
		return strings.ToLower(merged[i].Name) < strings.ToLower(merged[j].Name)
	})
	return merged
}

// deviceRank orders the merged list: active output first, paired system
// devices next, not-yet-paired discovery-only devices last.
func deviceRank(d domain.AudioDevice) int {
	switch {
	case d.IsActiveOutput:
		return 0
	case d.PairingStatus == domain.Paired && d.Source == domain.SourceSystemAPI:
		return 1
	case d.Source == domain.SourceBluetoothDiscovery && d.PairingStatus != domain.Paired:
		return 3
	default:
		return 2
	}
}

// isPlaceholderName reports whether a system-provided device name carries no
// information worth keeping over a discovered name.
func isPlaceholderName(name string) bool {
	trimmed := strings.TrimSpace(name)
	return trimmed == "" || strings.EqualFold(trimmed, "unknown") || strings.EqualFold(trimmed, "unknown device")
}

// publishError records the sticky error string and publishes it.
func (s *DeviceService) publishError(message string, err error) {
	s.mu.Lock()
	s.lastError = message
	s.mu.Unlock()

	s.logger.Warn(message, slog.Any("error", err))
	s.bus.Publish(domain.NewDeviceErrorEvent(message, err))
}
