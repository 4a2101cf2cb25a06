// Package device provides the block-device collaborator: size and
// identity queries, disk type detection and the mount-status gate that
// must pass before any wipe.
package device

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Type classifies the storage device.
type Type string

const (
	TypeHDD     Type = "HDD"
	TypeSSD     Type = "SSD"
	TypeNVMe    Type = "NVMe SSD"
	TypeMMC     Type = "eMMC/MMC"
	TypeUnknown Type = "UNKNOWN"
)

// Identity is the immutable snapshot used to confirm a resume targets
// the same physical device. Serial is the primary discriminator, size
// the secondary; model is informational only.
type Identity struct {
	Serial string `json:"serial"`
	Model  string `json:"model"`
	Size   int64  `json:"size"`
}

// Device points at one block device node.
type Device struct {
	Path string
	Name string
}

func New(path string) *Device {
	return &Device{
		Path: path,
		Name: filepath.Base(path),
	}
}

// Size returns the device size in bytes via the BLKGETSIZE64 ioctl.
func (d *Device) Size() (int64, error) {
	f, err := os.OpenFile(d.Path, os.O_RDONLY|unix.O_CLOEXEC|unix.O_NONBLOCK, 0)
	if err != nil {
		return 0, fmt.Errorf("cannot open %s: %w", d.Path, err)
	}
	defer f.Close() //nolint:errcheck

	var devsize uint64
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), unix.BLKGETSIZE64, uintptr(unsafe.Pointer(&devsize))); errno != 0 {
		return 0, fmt.Errorf("BLKGETSIZE64 on %s: %w", d.Path, errno)
	}

	return int64(devsize), nil
}

// OpenForWrite opens the device node for the wipe pass.
func (d *Device) OpenForWrite() (*os.File, error) {
	f, err := os.OpenFile(d.Path, os.O_WRONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s for writing: %w", d.Path, err)
	}

	return f, nil
}

// Properties returns the udev property map for the device.
func (d *Device) Properties() (map[string]string, error) {
	out, err := exec.Command("udevadm", "info", "--query=property", "--name", d.Path).Output()
	if err != nil {
		return nil, fmt.Errorf("udevadm query for %s failed: %w", d.Path, err)
	}

	return parseProperties(string(out)), nil
}

func parseProperties(out string) map[string]string {
	props := make(map[string]string)

	for _, line := range strings.Split(out, "\n") {
		key, value, found := strings.Cut(line, "=")
		if found {
			props[key] = value
		}
	}

	return props
}

// Identity returns the identity tuple for resume verification. Serial
// and model may be empty when udev has no data for the device.
func (d *Device) Identity() (Identity, error) {
	size, err := d.Size()
	if err != nil {
		return Identity{}, err
	}

	id := Identity{Size: size}

	props, err := d.Properties()
	if err != nil {
		// Size alone still allows secondary verification.
		return id, nil
	}

	id.Serial = props["ID_SERIAL_SHORT"]
	id.Model = props["ID_MODEL"]

	return id, nil
}

// DetectType classifies the device, returning the type, a confidence
// level and the detection details.
func (d *Device) DetectType() (Type, string, []string) {
	if strings.HasPrefix(d.Name, "nvme") {
		return TypeNVMe, "HIGH", []string{"NVMe interface detected"}
	}
	if strings.HasPrefix(d.Name, "mmc") {
		return TypeMMC, "HIGH", []string{"MMC interface detected"}
	}

	if rotational, err := d.isRotational(); err == nil {
		if rotational {
			return TypeHDD, "HIGH", []string{"Rotational device"}
		}
		return TypeSSD, "HIGH", []string{"Non-rotational device"}
	}

	props, err := d.Properties()
	if err != nil {
		return TypeUnknown, "LOW", []string{fmt.Sprintf("Detection failed: %v", err)}
	}

	return detectFromProperties(props)
}

func (d *Device) isRotational() (bool, error) {
	data, err := os.ReadFile(filepath.Join("/sys/block", d.Name, "queue", "rotational"))
	if err != nil {
		return false, err
	}

	return strings.TrimSpace(string(data)) == "1", nil
}

func detectFromProperties(props map[string]string) (Type, string, []string) {
	if rpm, ok := props["ID_ATA_ROTATION_RATE_RPM"]; ok {
		if rpm == "0" {
			return TypeSSD, "MEDIUM", []string{"Zero RPM indicates SSD"}
		}
		return TypeHDD, "MEDIUM", []string{fmt.Sprintf("Rotational speed detected: %s RPM", rpm)}
	}

	model := strings.ToUpper(props["ID_MODEL"])
	switch {
	case strings.Contains(model, "SSD") || strings.Contains(model, "SOLID STATE"):
		return TypeSSD, "MEDIUM", []string{"SSD mentioned in model name"}
	case strings.Contains(model, "HDD") || strings.Contains(model, "HARD DISK"):
		return TypeHDD, "MEDIUM", []string{"HDD mentioned in model name"}
	}

	return TypeUnknown, "LOW", []string{"No type indicators found"}
}

// IsMounted reports whether the device or any of its partitions is
// mounted, with the matching "/dev/xxx -> /mountpoint" entries.
func (d *Device) IsMounted() (bool, []string, error) {
	data, err := os.ReadFile("/proc/mounts")
	if err != nil {
		return false, nil, fmt.Errorf("cannot read /proc/mounts: %w", err)
	}

	mounts := findMounts(string(data), d.Path)

	return len(mounts) > 0, mounts, nil
}

func findMounts(procMounts, devicePath string) []string {
	var mounts []string

	for _, line := range strings.Split(procMounts, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		// Matches the whole device and its partitions (/dev/sdb,
		// /dev/sdb1, /dev/nvme0n1p2).
		if fields[0] == devicePath || strings.HasPrefix(fields[0], devicePath) {
			mounts = append(mounts, fields[0]+" -> "+fields[1])
		}
	}

	return mounts
}

// List enumerates whole-disk block devices.
func List() ([]string, error) {
	entries, err := os.ReadDir("/sys/block")
	if err != nil {
		return nil, fmt.Errorf("cannot read /sys/block: %w", err)
	}

	var devices []string

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, "loop") ||
			strings.HasPrefix(name, "ram") ||
			strings.HasPrefix(name, "zram") ||
			strings.HasPrefix(name, "dm-") {
			continue
		}

		devices = append(devices, "/dev/"+name)
	}

	sort.Strings(devices)

	return devices, nil
}
