// Command bacnetd runs the BACnet4Linux GPIO server: it loads the object
// table from a bootstrap file, wires commandable objects to the sysfs GPIO
// effector, and serves confirmed ReadProperty/WriteProperty requests handed
// to it by a link layer (out of this module's scope; see pkg/service).
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/kcooper33/bacnet4linux-go/pkg/bootstrap"
	"github.com/kcooper33/bacnet4linux-go/pkg/config"
	"github.com/kcooper33/bacnet4linux-go/pkg/effector"
	"github.com/kcooper33/bacnet4linux-go/pkg/property"
	"github.com/kcooper33/bacnet4linux-go/pkg/service"
)

func main() {
	log := logrus.New()

	app := cli.NewApp()
	app.Name = "bacnetd"
	app.Usage = "expose Linux GPIO pins as BACnet objects"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "bootstrap",
			Value: config.DefaultBootstrapPath,
			Usage: "path to the GPIO pin bootstrap JSON file",
		},
		cli.StringFlag{
			Name:  "gpio-base",
			Value: config.DefaultGPIOBasePath,
			Usage: "sysfs GPIO root (/sys/class/gpio)",
		},
		cli.IntFlag{
			Name:  "device-instance",
			Value: config.DefaultDeviceInstance,
			Usage: "BACnet Device object instance number",
		},
		cli.IntFlag{
			Name:  "vendor-id",
			Value: config.DefaultVendorID,
			Usage: "BACnet vendor identifier",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug logging",
		},
	}
	app.Action = func(c *cli.Context) error {
		if c.Bool("debug") {
			log.SetLevel(logrus.DebugLevel)
		}
		cfg := config.Default()
		if c.IsSet("bootstrap") {
			cfg.BootstrapPath = c.String("bootstrap")
		}
		if c.IsSet("gpio-base") {
			cfg.GPIOBasePath = c.String("gpio-base")
		}
		if c.IsSet("device-instance") {
			cfg.DeviceInstance = uint32(c.Int("device-instance"))
		}
		if c.IsSet("vendor-id") {
			cfg.VendorID = uint32(c.Int("vendor-id"))
		}
		return run(cfg, log)
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("bacnetd exited")
	}
}

func run(cfg config.Config, log *logrus.Logger) error {
	res, err := bootstrap.Load(cfg.BootstrapPath, log)
	if err != nil {
		return err
	}

	eff := effector.NewSysfsGPIO(cfg.GPIOBasePath, res.Pins, log)
	device := property.DeviceInfo{
		Instance:              cfg.DeviceInstance,
		Description:           deviceDescription(cfg, res),
		VendorIdentifier:      cfg.VendorID,
		MaxAPDULengthAccepted: cfg.MaxAPDULength,
		ApduTimeoutMs:         cfg.ApduTimeoutMs,
		NumberOfApduRetries:   cfg.NumberOfRetries,
	}
	srv := service.NewServer(res.Store, device, eff, log)

	log.WithFields(logrus.Fields{
		"device_instance": cfg.DeviceInstance,
		"objects":         srv.Store.Count(),
		"bootstrap_id":    res.CorrelationID.String(),
	}).Info("bacnetd ready")

	// The link layer (datagram I/O, BVLC, NPDU routing) is an external
	// collaborator: it is expected to decode confirmed-service requests down
	// to a service.Request and call srv.Handle, then address and send the
	// response bytes it gets back. This process just stays up and serves
	// until told to stop.
	stopSignal := make(chan os.Signal, 1)
	signal.Notify(stopSignal, os.Interrupt, syscall.SIGHUP, syscall.SIGTERM)
	sig := <-stopSignal
	log.WithField("signal", sig).Info("bacnetd stopping")
	return nil
}

func deviceDescription(cfg config.Config, res *bootstrap.Result) string {
	if res.DeviceDescription != "" {
		return res.DeviceDescription
	}
	return cfg.Description
}
