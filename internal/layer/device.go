package layer

import (
	"errors"
	"fmt"
)

// DeviceType represents the hardware device used for computation.
type DeviceType int

const (
	CPU DeviceType = iota
	Accelerator
)

// Device manages the hardware resources for neural network operations.
type Device interface {
	Type() DeviceType
	IsAvailable() bool
	String() string
}

// ErrUnavailable reports that the requested accelerator cannot be used.
var ErrUnavailable = errors.New("accelerator not available")

// CPUDevice handles computations on the host CPU.
type CPUDevice struct{}

func (d *CPUDevice) Type() DeviceType { return CPU }
func (d *CPUDevice) IsAvailable() bool { return true }
func (d *CPUDevice) String() string   { return "cpu" }

// AcceleratorDevice identifies an accelerator by id. Builds without an
// accelerator runtime report it as unavailable.
type AcceleratorDevice struct {
	ID int
}

func (d *AcceleratorDevice) Type() DeviceType { return Accelerator }
func (d *AcceleratorDevice) IsAvailable() bool { return false }
func (d *AcceleratorDevice) String() string   { return fmt.Sprintf("accelerator:%d", d.ID) }

// Select resolves a device id to a usable device. Negative ids select the CPU.
// Requesting an accelerator that is not available is a configuration error and
// fails before any training begins.
func Select(id int) (Device, error) {
	if id < 0 {
		return &CPUDevice{}, nil
	}
	dev := &AcceleratorDevice{ID: id}
	if !dev.IsAvailable() {
		return nil, fmt.Errorf("device %d: %w", id, ErrUnavailable)
	}
	return dev, nil
}
