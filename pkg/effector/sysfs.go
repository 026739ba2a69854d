package effector

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// SysfsGPIO drives physical GPIO pins through the Linux sysfs interface
// (/sys/class/gpio/...), the same mechanism original_source's gpio_objects.c
// uses (export, then direction, then value, all as plain file writes) rather
// than a character-device ioctl interface — there is no Go GPIO
// character-device library anywhere in the retrieval pack to ground an
// ioctl-based implementation on (see DESIGN.md).
type SysfsGPIO struct {
	basePath string
	pins     map[uint32]int // object instance -> GPIO pin number
	log      logrus.FieldLogger
}

// NewSysfsGPIO constructs an effector over the given instance->pin mapping.
// basePath defaults to "/sys/class/gpio" when empty; tests pass a temp dir.
func NewSysfsGPIO(basePath string, pins map[uint32]int, log logrus.FieldLogger) *SysfsGPIO {
	if basePath == "" {
		basePath = "/sys/class/gpio"
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SysfsGPIO{basePath: basePath, pins: pins, log: log}
}

// Export writes the pin number to .../export and sets its direction, the two
// one-time setup steps gpio_objects.c performs before the first write.
func (s *SysfsGPIO) Export(instance uint32, output bool) error {
	pin, ok := s.pins[instance]
	if !ok {
		return fmt.Errorf("no GPIO pin mapped for instance %d", instance)
	}
	exportPath := s.basePath + "/export"
	if err := writeFile(exportPath, strconv.Itoa(pin)); err != nil {
		// Already-exported pins return EBUSY; that's not fatal here.
		s.log.WithField("pin", pin).WithError(err).Debug("gpio export (already exported is expected)")
	}
	dir := "in"
	if output {
		dir = "out"
	}
	directionPath := fmt.Sprintf("%s/gpio%d/direction", s.basePath, pin)
	return writeFile(directionPath, dir)
}

func (s *SysfsGPIO) Write(instance uint32, v Value) error {
	pin, ok := s.pins[instance]
	if !ok {
		return fmt.Errorf("no GPIO pin mapped for instance %d", instance)
	}
	valuePath := fmt.Sprintf("%s/gpio%d/value", s.basePath, pin)
	bit := "0"
	if v.Binary {
		if v.Bit == 1 {
			bit = "1"
		}
	} else if v.Analog != 0 {
		bit = "1"
	}
	if err := writeFile(valuePath, bit); err != nil {
		return errors.Wrapf(err, "writing gpio%d/value", pin)
	}
	return nil
}

func (s *SysfsGPIO) Read(instance uint32) (Value, error) {
	pin, ok := s.pins[instance]
	if !ok {
		return Value{}, fmt.Errorf("no GPIO pin mapped for instance %d", instance)
	}
	valuePath := fmt.Sprintf("%s/gpio%d/value", s.basePath, pin)
	raw, err := os.ReadFile(valuePath)
	if err != nil {
		return Value{}, errors.Wrapf(err, "reading gpio%d/value", pin)
	}
	bit := strings.TrimSpace(string(raw))
	return Value{Binary: true, Bit: parseBit(bit)}, nil
}

func parseBit(s string) uint8 {
	if s == "1" {
		return 1
	}
	return 0
}

func writeFile(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(content)
	return err
}
