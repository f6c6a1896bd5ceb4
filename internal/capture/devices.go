package capture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// ErrDeviceNotFound is returned when no camera matches the selected name.
var ErrDeviceNotFound = errors.New("camera device not found")

// DefaultSysfsRoot is where Linux exposes video4linux devices.
const DefaultSysfsRoot = "/sys/class/video4linux"

// Device is a camera the system can open.
type Device struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// Lister enumerates the available cameras.
type Lister interface {
	Devices() ([]Device, error)
}

// SystemLister reads camera names from sysfs when available and otherwise
// probes the first Probe device indices with OpenCV.
type SystemLister struct {
	SysfsRoot string
	Probe     int

	probe func(index int) bool
	log   *zap.Logger
}

// NewLister creates a SystemLister probing up to probe indices.
func NewLister(probe int, log *zap.Logger) *SystemLister {
	if log == nil {
		log = zap.NewNop()
	}
	return &SystemLister{
		SysfsRoot: DefaultSysfsRoot,
		Probe:     probe,
		probe:     probeIndex,
		log:       log,
	}
}

// Devices lists cameras ordered by index.
func (l *SystemLister) Devices() ([]Device, error) {
	devices, err := l.sysfsDevices()
	if err == nil && len(devices) > 0 {
		return devices, nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		l.log.Debug("sysfs camera listing failed, probing indices", zap.Error(err))
	}
	return l.probeDevices(), nil
}

func (l *SystemLister) sysfsDevices() ([]Device, error) {
	entries, err := os.ReadDir(l.SysfsRoot)
	if err != nil {
		return nil, err
	}

	var devices []Device
	for _, e := range entries {
		idx, ok := strings.CutPrefix(e.Name(), "video")
		if !ok {
			continue
		}
		index, err := strconv.Atoi(idx)
		if err != nil {
			continue
		}
		dir := filepath.Join(l.SysfsRoot, e.Name())

		// Capture nodes have stream index 0; metadata nodes share the name.
		if data, err := os.ReadFile(filepath.Join(dir, "index")); err == nil {
			if strings.TrimSpace(string(data)) != "0" {
				continue
			}
		}

		name, err := os.ReadFile(filepath.Join(dir, "name"))
		if err != nil {
			return nil, fmt.Errorf("read name of %s: %w", e.Name(), err)
		}
		devices = append(devices, Device{Index: index, Name: strings.TrimSpace(string(name))})
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].Index < devices[j].Index })
	return devices, nil
}

func (l *SystemLister) probeDevices() []Device {
	devices := []Device{}
	for i := 0; i < l.Probe; i++ {
		if l.probe(i) {
			devices = append(devices, Device{Index: i, Name: fmt.Sprintf("Camera %d", i)})
		}
	}
	return devices
}

func probeIndex(index int) bool {
	vc, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return false
	}
	defer vc.Close()
	return vc.IsOpened()
}

// StaticLister returns a fixed device list.
type StaticLister []Device

func (s StaticLister) Devices() ([]Device, error) {
	out := make([]Device, len(s))
	copy(out, s)
	return out, nil
}

// Names returns the device names in list order.
func Names(devices []Device) []string {
	names := make([]string, len(devices))
	for i, d := range devices {
		names[i] = d.Name
	}
	return names
}

// ResolveDevice finds the camera called name. An empty name selects the first
// camera.
func ResolveDevice(l Lister, name string) (Device, error) {
	devices, err := l.Devices()
	if err != nil {
		return Device{}, fmt.Errorf("list cameras: %w", err)
	}
	if len(devices) == 0 {
		return Device{}, fmt.Errorf("no cameras available: %w", ErrDeviceNotFound)
	}
	if name == "" {
		return devices[0], nil
	}
	for _, d := range devices {
		if d.Name == name {
			return d, nil
		}
	}
	return Device{}, fmt.Errorf("%q: %w", name, ErrDeviceNotFound)
}
