// Package bootstrap loads the GPIO pin map from a JSON configuration file
// and populates the object store, the commandable objects' priority arrays,
// and the GPIO instance-to-pin map the effector needs (grounded on
// original_source's gpio_create_objects_from_config: per-pin enabled/name/
// direction/high_unit/low_unit/instance fields, defaulted the same way).
package bootstrap

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kcooper33/bacnet4linux-go/internal/apdu"
	"github.com/kcooper33/bacnet4linux-go/pkg/object"
	"github.com/kcooper33/bacnet4linux-go/pkg/priority"
)

// PinConfig is one GPIO pin's entry in the bootstrap file, keyed by pin
// number (as a JSON object key, e.g. `"17": {...}`).
type PinConfig struct {
	Enabled   bool   `json:"enabled"`
	Name      string `json:"name"`
	Direction string `json:"direction"` // "input" or "output"
	HighUnit  string `json:"high_unit"` // active-text
	LowUnit   string `json:"low_unit"`  // inactive-text
	Instance  int    `json:"instance"`
}

// File is the top-level bootstrap document. Pins is keyed by GPIO pin
// number as a string, matching the original JSON shape.
type File struct {
	DeviceDescription string               `json:"device_description"`
	Pins              map[string]PinConfig `json:"pins"`
}

const (
	// Instance-number offsets matching original_source's bacnet_instance
	// assignment (binary outputs land at 4000+instance, inputs at
	// 3000+instance).
	binaryOutputInstanceBase = 4000
	binaryInputInstanceBase  = 3000

	defaultHighUnit = "High"
	defaultLowUnit  = "Low"
)

// PinMapping is the instance -> GPIO pin number table the sysfs effector
// uses to translate a commanded instance into a /sys/class/gpio/gpioN path.
type PinMapping map[uint32]int

// Result is everything a successful Load populates.
type Result struct {
	Store             *object.Store
	Pins              PinMapping
	DeviceDescription string
	CorrelationID     uuid.UUID
}

// Load reads and parses path, skips disabled pins, and returns a populated
// object store plus GPIO pin mapping. Each load gets a fresh correlation id
// (carried only for logging — it never appears on the wire) so concurrent
// bootstrap attempts can be told apart in the log stream.
func Load(path string, log logrus.FieldLogger) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening bootstrap file")
	}
	defer f.Close()
	return LoadFrom(f, log)
}

// LoadFrom parses r as a bootstrap document. Exposed separately from Load so
// tests and embedders can supply an in-memory reader.
func LoadFrom(r io.Reader, log logrus.FieldLogger) (*Result, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	correlationID := uuid.New()
	logEntry := log.WithField("bootstrap_id", correlationID.String())

	var doc File
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "parsing bootstrap JSON")
	}

	store := object.NewStore()
	pins := PinMapping{}

	for pinStr, cfg := range doc.Pins {
		if !cfg.Enabled {
			logEntry.WithField("pin", pinStr).Debug("skipping disabled pin")
			continue
		}
		pinNum, err := parsePinNumber(pinStr)
		if err != nil {
			return nil, err
		}

		name := cfg.Name
		if name == "" {
			name = fmt.Sprintf("GPIO %d", pinNum)
		}
		highUnit := cfg.HighUnit
		if highUnit == "" {
			highUnit = defaultHighUnit
		}
		lowUnit := cfg.LowUnit
		if lowUnit == "" {
			lowUnit = defaultLowUnit
		}
		instance := cfg.Instance
		if instance == 0 {
			instance = pinNum
		}

		var id object.ID
		switch cfg.Direction {
		case "output":
			id = object.ID{Type: object.TypeBinaryOutput, Instance: uint32(binaryOutputInstanceBase + instance)}
		case "input", "":
			id = object.ID{Type: object.TypeBinaryInput, Instance: uint32(binaryInputInstanceBase + instance)}
		default:
			return nil, errors.Errorf("pin %s: unknown direction %q", pinStr, cfg.Direction)
		}

		rec := &object.Record{
			ID:           id,
			Name:         name,
			PresentValue: apdu.Enumerated(0),
			ActiveText:   highUnit,
			InactiveText: lowUnit,
		}
		if id.Type.Commandable() {
			rec.Priorities = priority.NewArray(apdu.Enumerated(0))
		}
		if err := store.Insert(rec); err != nil {
			return nil, errors.Wrapf(err, "inserting object for pin %s", pinStr)
		}
		pins[id.Instance] = pinNum

		logEntry.WithField("object", id.String()).WithField("gpio_pin", pinNum).Debug("registered object")
	}

	logEntry.WithField("object_count", store.Count()).Info("bootstrap complete")

	return &Result{
		Store:             store,
		Pins:              pins,
		DeviceDescription: doc.DeviceDescription,
		CorrelationID:     correlationID,
	}, nil
}

func parsePinNumber(s string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, errors.Wrapf(err, "invalid pin key %q", s)
	}
	return n, nil
}
