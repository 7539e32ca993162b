// Package domain defines domain-specific errors.
// These errors represent business logic failures and are independent of infrastructure.
package domain

import (
	"errors"
	"fmt"
)

// Common errors that services can return.
var (
	// ErrSongNotFound is returned when a requested song cannot be found.
	ErrSongNotFound = errors.New("song not found")

	// ErrDeviceNotFound is returned when a requested audio device is not in
	// the reconciled list.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrQueueEmpty is returned when queue operations are attempted on an empty queue.
	ErrQueueEmpty = errors.New("queue is empty")

	// ErrNoSongLoaded is returned when a transport operation requires a loaded song.
	ErrNoSongLoaded = errors.New("no song loaded")

	// ErrInvalidPosition is returned when seeking to an invalid position.
	ErrInvalidPosition = errors.New("invalid playback position")

	// ErrNotInitialized is returned when an operation is attempted on an uninitialized component.
	ErrNotInitialized = errors.New("component not initialized")

	// ErrAlreadyInitialized is returned when attempting to initialize an already initialized component.
	ErrAlreadyInitialized = errors.New("component already initialized")

	// ErrInvalidFilePath is returned when a file path is invalid.
	ErrInvalidFilePath = errors.New("invalid file path")

	// ErrDiscoveryActive is returned by a start-discovery call while a scan is
	// already running. Callers treat it as "reaffirm discovering state".
	ErrDiscoveryActive = errors.New("discovery already in progress")

	// ErrDeviceNotConnectable is returned when routing to an endpoint that
	// cannot accept output.
	ErrDeviceNotConnectable = errors.New("device is not connectable")

	// ErrNoMonthData is returned by history queries for months with no rows.
	// Analytics treats this as a valid no-data state, not a failure.
	ErrNoMonthData = errors.New("no play history for month")
)

// Capability names used by PermissionError.
const (
	CapabilityBluetoothScan    = "bluetooth_scan"
	CapabilityBluetoothConnect = "bluetooth_connect"
)

// PermissionError indicates a missing OS capability. It is fatal to the
// specific operation that required the capability and surfaces an actionable
// message naming it.
type PermissionError struct {
	Capability string // Capability that was denied (e.g. bluetooth_scan)
	Op         string // Operation that required it
}

// Error implements the error interface.
func (e *PermissionError) Error() string {
	return fmt.Sprintf("%s requires the %s capability", e.Op, e.Capability)
}

// NewPermissionError creates a new PermissionError.
func NewPermissionError(capability, op string) *PermissionError {
	return &PermissionError{Capability: capability, Op: op}
}

// DeviceError represents a transport or routing failure for a specific device.
type DeviceError struct {
	Op      string // Operation that failed (e.g. "pair", "route")
	Key     string // Device identity key
	Message string // Error message
	Err     error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DeviceError) Error() string {
	return fmt.Sprintf("device %s failed for %s: %s", e.Op, e.Key, e.Message)
}

// Unwrap returns the underlying error.
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// NewDeviceError creates a new DeviceError.
func NewDeviceError(op, key, message string, err error) *DeviceError {
	return &DeviceError{Op: op, Key: key, Message: message, Err: err}
}

// LoadError indicates an unreadable or corrupt media source.
type LoadError struct {
	Path string // Source path or URL
	Err  error  // Underlying decode or I/O error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load media source '%s': %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// NewLoadError creates a new LoadError.
func NewLoadError(path string, err error) *LoadError {
	return &LoadError{Path: path, Err: err}
}

// NetworkError represents a failed remote call. Connectivity failures and
// server-side failures are distinguished for user messaging.
type NetworkError struct {
	Op           string // Remote operation (e.g. "fetch_charts")
	StatusCode   int    // HTTP status, 0 when the request never completed
	Connectivity bool   // True when the failure was reaching the server at all
	Err          error  // Underlying error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	if e.Connectivity {
		return fmt.Sprintf("network unavailable during %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("server error during %s (status %d): %v", e.Op, e.StatusCode, e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new NetworkError.
func NewNetworkError(op string, statusCode int, connectivity bool, err error) *NetworkError {
	return &NetworkError{Op: op, StatusCode: statusCode, Connectivity: connectivity, Err: err}
}

// RepositoryError represents an error from a repository.
// This wraps persistence layer errors with additional context.
type RepositoryError struct {
	Op      string // Operation that failed (e.g. "insert", "query")
	Type    string // Repository type (e.g. "songs", "history", "settings")
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository %s.%s failed: %s", e.Type, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// NewRepositoryError creates a new RepositoryError.
func NewRepositoryError(op, repoType, message string, err error) *RepositoryError {
	return &RepositoryError{Op: op, Type: repoType, Message: message, Err: err}
}

// IsPermissionDenied reports whether err is a capability denial.
func IsPermissionDenied(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsConnectivity reports whether err is a network failure caused by missing
// connectivity rather than a server-side error.
func IsConnectivity(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne) && ne.Connectivity
}
