// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"io"

	"spectrum/internal/config"

	"github.com/charmbracelet/lipgloss"
	"github.com/gordonklaus/portaudio"
)

// PortAudio entry points, swapped by tests.
var (
	paLibInitialize         = portaudio.Initialize
	paLibTerminate          = portaudio.Terminate
	paLibDevices            = portaudio.Devices
	paLibDefaultInputDevice = portaudio.DefaultInputDevice
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	nameStyle    = lipgloss.NewStyle().Bold(true)
	defaultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#25A065")).Bold(true)
	detailStyle  = lipgloss.NewStyle().Faint(true).PaddingLeft(4)
)

// Device describes a host audio device.
type Device struct {
	ID                int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	Default           bool // System default input device
}

// Initialize sets up the PortAudio subsystem.
// This must be called before any audio operations and paired with a Terminate() call.
func Initialize() error {
	if err := paLibInitialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate shuts down the PortAudio subsystem.
func Terminate() error {
	if err := paLibTerminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// HostDevices returns every device PortAudio reports, with IDs matching the
// --device flag.
func HostDevices() ([]Device, error) {
	infos, err := paDevices()
	if err != nil {
		return nil, err
	}

	var defaultName string
	if def, err := paLibDefaultInputDevice(); err == nil && def != nil {
		defaultName = def.Name
	}

	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = Device{
			ID:                i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			MaxOutputChannels: info.MaxOutputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
			Default:           defaultName != "" && info.Name == defaultName && info.MaxInputChannels > 0,
		}
	}
	return devices, nil
}

// InputDevice returns the capture device for deviceID. config.MinDeviceID
// (-1) selects the system default; a missing default yields ErrNoInputDevice.
func InputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	if deviceID == config.MinDeviceID {
		device, err := paLibDefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoInputDevice, err)
		}
		if device == nil || device.MaxInputChannels < config.Channels {
			return nil, ErrNoInputDevice
		}
		return device, nil
	}

	devices, err := paDevices()
	if err != nil {
		return nil, err
	}
	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("invalid device ID: %d", deviceID)
	}
	device := devices[deviceID]
	if device.MaxInputChannels < config.Channels {
		return nil, fmt.Errorf("device %d (%s) does not support input", deviceID, device.Name)
	}
	return device, nil
}

// ListDevices writes a styled table of host devices to w.
func ListDevices(w io.Writer) error {
	devices, err := HostDevices()
	if err != nil {
		return err
	}

	fmt.Fprintln(w, headerStyle.Render("Available Audio Devices"))
	fmt.Fprintln(w)

	if len(devices) == 0 {
		fmt.Fprintln(w, detailStyle.Render("(none)"))
		return nil
	}

	for _, d := range devices {
		deviceType := ""
		switch {
		case d.MaxInputChannels > 0 && d.MaxOutputChannels > 0:
			deviceType = "Input/Output"
		case d.MaxInputChannels > 0:
			deviceType = "Input"
		case d.MaxOutputChannels > 0:
			deviceType = "Output"
		}

		line := fmt.Sprintf("[%d] %s (%s)", d.ID, nameStyle.Render(d.Name), deviceType)
		if d.Default {
			line += " " + defaultStyle.Render("default")
		}
		fmt.Fprintln(w, line)
		fmt.Fprintln(w, detailStyle.Render(fmt.Sprintf("Input channels: %d, Output channels: %d",
			d.MaxInputChannels, d.MaxOutputChannels)))
		fmt.Fprintln(w, detailStyle.Render(fmt.Sprintf("Default sample rate: %.0f Hz", d.DefaultSampleRate)))
	}
	return nil
}

// paDevices returns all PortAudio devices, never a nil slice on success.
func paDevices() ([]*portaudio.DeviceInfo, error) {
	devices, err := paLibDevices()
	if err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []*portaudio.DeviceInfo{}
	}
	return devices, nil
}
