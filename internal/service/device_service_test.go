package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mockdevices "github.com/auralis-music/auralis/internal/adapter/devices/mock"
	"github.com/auralis-music/auralis/internal/adapter/eventbus"
	"github.com/auralis-music/auralis/internal/domain"
	"github.com/auralis-music/auralis/internal/logger"
)

func newTestDeviceService(t *testing.T) (*DeviceService, *mockdevices.SystemAudio, *mockdevices.Bluetooth, *mockdevices.Capabilities, *eventbus.SyncEventBus) {
	t.Helper()

	system := mockdevices.NewSystemAudio()
	bluetooth := mockdevices.NewBluetooth()
	gate := mockdevices.NewCapabilities()
	bus := eventbus.NewSyncEventBus()

	service := NewDeviceService(logger.NewTestLogger(), system, bluetooth, gate, bus)
	t.Cleanup(func() {
		require.NoError(t, service.Close())
		require.NoError(t, bus.Close())
	})
	return service, system, bluetooth, gate, bus
}

func systemDevice(id int, name string, deviceType domain.DeviceType, active bool) domain.AudioDevice {
	sid := id
	return domain.AudioDevice{
		SystemID:       &sid,
		Name:           name,
		Type:           deviceType,
		IsActiveOutput: active,
		PairingStatus:  domain.Paired,
		Source:         domain.SourceSystemAPI,
		IsConnectable:  true,
	}
}

func discoveredDevice(address, name string) domain.AudioDevice {
	return domain.AudioDevice{
		Name:          name,
		Type:          domain.DeviceBluetoothA2DP,
		Address:       address,
		Source:        domain.SourceBluetoothDiscovery,
		IsConnectable: true,
	}
}

func waitForDevices(t *testing.T, service *DeviceService, cond func([]domain.AudioDevice) bool) []domain.AudioDevice {
	t.Helper()

	var devices []domain.AudioDevice
	require.Eventually(t, func() bool {
		devices = service.Devices()
		return cond(devices)
	}, time.Second, time.Millisecond)
	return devices
}

func TestDeviceService_MergeSameAddressProducesOneEntry(t *testing.T) {
	service, system, bluetooth, _, _ := newTestDeviceService(t)

	btSystem := systemDevice(7, "Buds", domain.DeviceBluetoothA2DP, false)
	btSystem.Address = "AA:BB:CC:DD:EE:FF"
	system.SetDevices([]domain.AudioDevice{btSystem})
	require.NoError(t, service.RefreshSystemDevices())

	found := discoveredDevice("AA:BB:CC:DD:EE:FF", "Buds Pro")
	found.PairingStatus = domain.PairingInProgress
	bluetooth.EmitDeviceFound(found)

	devices := waitForDevices(t, service, func(ds []domain.AudioDevice) bool {
		return len(ds) == 1 && ds[0].PairingStatus == domain.PairingInProgress
	})

	// One physical device, one entry; discovery's pairing status is fresher,
	// the informative system name is kept
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", devices[0].Key())
	assert.Equal(t, "Buds", devices[0].Name)
}

func TestDeviceService_MergeReplacesPlaceholderName(t *testing.T) {
	service, system, bluetooth, _, _ := newTestDeviceService(t)

	unnamed := systemDevice(9, "Unknown", domain.DeviceBluetoothA2DP, false)
	unnamed.Address = "11:22:33:44:55:66"
	system.SetDevices([]domain.AudioDevice{unnamed})
	require.NoError(t, service.RefreshSystemDevices())

	bluetooth.EmitDeviceFound(discoveredDevice("11:22:33:44:55:66", "Studio Headphones"))

	devices := waitForDevices(t, service, func(ds []domain.AudioDevice) bool {
		return len(ds) == 1 && ds[0].Name == "Studio Headphones"
	})
	assert.Equal(t, domain.SourceSystemAPI, devices[0].Source)
}

func TestDeviceService_SortOrder(t *testing.T) {
	service, system, bluetooth, _, _ := newTestDeviceService(t)

	a := systemDevice(1, "Alpha Speaker", domain.DeviceBuiltinSpeaker, false)
	b := systemDevice(2, "Zeta Buds", domain.DeviceBluetoothA2DP, true)
	b.Address = "B0:00:00:00:00:01"
	system.SetDevices([]domain.AudioDevice{a, b})
	require.NoError(t, service.RefreshSystemDevices())

	bluetooth.EmitDeviceFound(discoveredDevice("C0:00:00:00:00:02", "Mid Earbuds"))

	devices := waitForDevices(t, service, func(ds []domain.AudioDevice) bool {
		return len(ds) == 3
	})

	// Active first, paired system devices next, unpaired discovery-only last
	assert.Equal(t, "Zeta Buds", devices[0].Name)
	assert.Equal(t, "Alpha Speaker", devices[1].Name)
	assert.Equal(t, "Mid Earbuds", devices[2].Name)
}

func TestDeviceService_DiscoveryRequiresScanCapability(t *testing.T) {
	service, _, _, gate, bus := newTestDeviceService(t)

	var mu sync.Mutex
	var deviceErr domain.DeviceErrorEvent
	bus.Subscribe(domain.EventDeviceError, func(e domain.Event) {
		mu.Lock()
		deviceErr = e.(domain.DeviceErrorEvent)
		mu.Unlock()
	})

	gate.SetScanGranted(false)

	err := service.StartDiscovery(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsPermissionDenied(err))
	assert.False(t, service.IsDiscovering())

	mu.Lock()
	assert.NotEmpty(t, deviceErr.Message)
	mu.Unlock()
}

func TestDeviceService_DiscoveryProceedsWithoutConnect(t *testing.T) {
	service, _, _, gate, _ := newTestDeviceService(t)

	gate.SetConnectGranted(false)

	require.NoError(t, service.StartDiscovery(context.Background()))
	assert.True(t, service.IsDiscovering())
	require.NoError(t, service.CancelDiscovery())
}

func TestDeviceService_DiscoveryReentrantStartIsNoOp(t *testing.T) {
	service, _, bluetooth, _, bus := newTestDeviceService(t)

	var mu sync.Mutex
	states := make([]bool, 0)
	bus.Subscribe(domain.EventDiscoveryStateEvent, func(e domain.Event) {
		mu.Lock()
		states = append(states, e.(domain.DiscoveryStateEvent).Discovering)
		mu.Unlock()
	})

	require.NoError(t, service.StartDiscovery(context.Background()))
	require.NoError(t, service.StartDiscovery(context.Background()))

	assert.True(t, service.IsDiscovering())
	assert.True(t, bluetooth.IsDiscovering())

	// Both calls reaffirm "discovering", neither flips it off
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) >= 2
	}, time.Second, time.Millisecond)
	mu.Lock()
	for _, discovering := range states {
		assert.True(t, discovering)
	}
	mu.Unlock()
}

func TestDeviceService_DiscoveryTimeoutAutoCancels(t *testing.T) {
	service, _, bluetooth, _, _ := newTestDeviceService(t)
	service.discoveryTimeout = 20 * time.Millisecond

	require.NoError(t, service.StartDiscovery(context.Background()))
	require.True(t, service.IsDiscovering())

	require.Eventually(t, func() bool {
		return !service.IsDiscovering() && !bluetooth.IsDiscovering()
	}, time.Second, time.Millisecond)
}

func TestDeviceService_UserPairingAutoSelects(t *testing.T) {
	service, _, bluetooth, _, _ := newTestDeviceService(t)

	var mu sync.Mutex
	var selected []domain.AudioDevice
	service.SetSelectFunc(func(device domain.AudioDevice) {
		mu.Lock()
		selected = append(selected, device)
		mu.Unlock()
	})

	bluetooth.EmitDeviceFound(discoveredDevice("AA:00:00:00:00:01", "New Buds"))
	waitForDevices(t, service, func(ds []domain.AudioDevice) bool { return len(ds) == 1 })

	require.NoError(t, service.SelectDevice("AA:00:00:00:00:01"))
	assert.Equal(t, []string{"AA:00:00:00:00:01"}, bluetooth.PairRequests())

	devices := waitForDevices(t, service, func(ds []domain.AudioDevice) bool {
		return ds[0].PairingStatus == domain.PairingInProgress
	})
	assert.Equal(t, domain.PairingInProgress, devices[0].PairingStatus)

	// Selection is deferred until the bond completes
	mu.Lock()
	assert.Empty(t, selected)
	mu.Unlock()

	bluetooth.EmitBondChanged("AA:00:00:00:00:01", domain.Paired)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(selected) == 1
	}, time.Second, time.Millisecond)
	mu.Lock()
	assert.Equal(t, "AA:00:00:00:00:01", selected[0].Address)
	mu.Unlock()
}

func TestDeviceService_ExternalPairingDoesNotAutoSelect(t *testing.T) {
	service, _, bluetooth, _, _ := newTestDeviceService(t)

	var mu sync.Mutex
	selectCalls := 0
	service.SetSelectFunc(func(domain.AudioDevice) {
		mu.Lock()
		selectCalls++
		mu.Unlock()
	})

	bluetooth.EmitDeviceFound(discoveredDevice("BB:00:00:00:00:02", "Neighbor Speaker"))
	waitForDevices(t, service, func(ds []domain.AudioDevice) bool { return len(ds) == 1 })

	// A bond completed without any user tap; output must not be re-routed
	bluetooth.EmitBondChanged("BB:00:00:00:00:02", domain.Paired)

	waitForDevices(t, service, func(ds []domain.AudioDevice) bool {
		return ds[0].PairingStatus == domain.Paired
	})
	mu.Lock()
	assert.Zero(t, selectCalls)
	mu.Unlock()
}

func TestDeviceService_AlreadyPairedSelectsDirectly(t *testing.T) {
	service, system, bluetooth, _, _ := newTestDeviceService(t)

	var mu sync.Mutex
	var selected []domain.AudioDevice
	service.SetSelectFunc(func(device domain.AudioDevice) {
		mu.Lock()
		selected = append(selected, device)
		mu.Unlock()
	})

	speaker := systemDevice(3, "Speaker", domain.DeviceBuiltinSpeaker, true)
	system.SetDevices([]domain.AudioDevice{speaker})
	require.NoError(t, service.RefreshSystemDevices())

	require.NoError(t, service.SelectDevice(speaker.Key()))

	mu.Lock()
	require.Len(t, selected, 1)
	assert.Equal(t, "Speaker", selected[0].Name)
	mu.Unlock()

	// No pairing round-trip for non-Bluetooth endpoints
	assert.Empty(t, bluetooth.PairRequests())
}

func TestDeviceService_PairingInitiationFailure(t *testing.T) {
	service, _, bluetooth, _, bus := newTestDeviceService(t)

	var mu sync.Mutex
	var deviceErr domain.DeviceErrorEvent
	bus.Subscribe(domain.EventDeviceError, func(e domain.Event) {
		mu.Lock()
		deviceErr = e.(domain.DeviceErrorEvent)
		mu.Unlock()
	})

	bluetooth.EmitDeviceFound(discoveredDevice("CC:00:00:00:00:03", "Flaky Buds"))
	waitForDevices(t, service, func(ds []domain.AudioDevice) bool { return len(ds) == 1 })

	bluetooth.SetPairError(domain.ErrDeviceNotConnectable)

	err := service.SelectDevice("CC:00:00:00:00:03")
	require.Error(t, err)

	devices := service.Devices()
	require.Len(t, devices, 1)
	assert.Equal(t, domain.PairingFailed, devices[0].PairingStatus)

	mu.Lock()
	assert.Contains(t, deviceErr.Message, "Flaky Buds")
	mu.Unlock()
	assert.NotEmpty(t, service.LastError())
}

func TestDeviceService_SelectUnknownDevice(t *testing.T) {
	service, _, _, _, _ := newTestDeviceService(t)

	assert.ErrorIs(t, service.SelectDevice("missing"), domain.ErrDeviceNotFound)
}

func TestDeviceService_RouteToNilClearsRouting(t *testing.T) {
	service, system, _, _, _ := newTestDeviceService(t)

	speaker := systemDevice(4, "Speaker", domain.DeviceBuiltinSpeaker, false)
	system.SetDevices([]domain.AudioDevice{speaker})
	require.NoError(t, service.RefreshSystemDevices())

	require.NoError(t, service.RouteTo(&speaker))
	require.NotNil(t, system.LastRouted())
	assert.Equal(t, 4, *system.LastRouted())

	require.NoError(t, service.RouteTo(nil))
	assert.Nil(t, system.LastRouted())
}

func TestDeviceService_RouteToDiscoveryOnlyDeviceFails(t *testing.T) {
	service, _, _, _, _ := newTestDeviceService(t)

	device := discoveredDevice("DD:00:00:00:00:04", "Unrouted Buds")
	err := service.RouteTo(&device)
	require.Error(t, err)

	var deviceErr *domain.DeviceError
	assert.ErrorAs(t, err, &deviceErr)
}
