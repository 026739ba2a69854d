// Package config holds the daemon's process-level configuration: the
// Device object's identity, the BACnet/IP port a link layer would bind
// (DefaultPort), and the paths to the bootstrap file and the sysfs GPIO
// root.
package config

import (
	"os"
	"strconv"
)

const (
	// DefaultPort is the default BACnet/IP port. Get it? BAC0.
	DefaultPort = 0xBAC0

	DefaultDeviceInstance  = 260
	DefaultVendorID        = 999
	DefaultMaxAPDULength   = 1476
	DefaultBootstrapPath   = "gpio_pin_config.json"
	DefaultGPIOBasePath    = "/sys/class/gpio"
	DefaultAPDUTimeoutMs   = 3000
	DefaultNumberOfRetries = 3
)

// Config is the fully-resolved set of knobs the daemon runs with.
type Config struct {
	DeviceInstance  uint32
	VendorID        uint32
	MaxAPDULength   uint32
	ApduTimeoutMs   uint32
	NumberOfRetries uint32
	Port            uint16
	BootstrapPath   string
	GPIOBasePath    string
	Description     string
}

// Default returns Config populated from the package defaults, then
// overridden by any of the BACNET4LINUX_* environment variables that are
// set. CLI flags (see cmd/bacnetd) are applied on top of this afterwards.
func Default() Config {
	cfg := Config{
		DeviceInstance:  DefaultDeviceInstance,
		VendorID:        DefaultVendorID,
		MaxAPDULength:   DefaultMaxAPDULength,
		ApduTimeoutMs:   DefaultAPDUTimeoutMs,
		NumberOfRetries: DefaultNumberOfRetries,
		Port:            DefaultPort,
		BootstrapPath:   DefaultBootstrapPath,
		GPIOBasePath:    DefaultGPIOBasePath,
		Description:     "BACnet4Linux GPIO server",
	}
	cfg.applyEnv()
	return cfg
}

func (c *Config) applyEnv() {
	if v, ok := envUint("BACNET4LINUX_DEVICE_INSTANCE"); ok {
		c.DeviceInstance = v
	}
	if v, ok := envUint("BACNET4LINUX_VENDOR_ID"); ok {
		c.VendorID = v
	}
	if v, ok := envUint("BACNET4LINUX_MAX_APDU"); ok {
		c.MaxAPDULength = v
	}
	if v, ok := envUint("BACNET4LINUX_PORT"); ok {
		c.Port = uint16(v)
	}
	if v, ok := os.LookupEnv("BACNET4LINUX_BOOTSTRAP"); ok {
		c.BootstrapPath = v
	}
	if v, ok := os.LookupEnv("BACNET4LINUX_GPIO_BASE"); ok {
		c.GPIOBasePath = v
	}
}

func envUint(name string) (uint32, bool) {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}
