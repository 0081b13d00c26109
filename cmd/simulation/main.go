// Controller simulator: runs the motion controller emulator on a serial device.
// Use this for local testing when you don't have the rover hardware. With
// --virtual it creates a socat PTY pair, serves on the first end and the
// supervisor connects to the second.
package main

import (
	"VoiceRover/internal/device"
	"VoiceRover/internal/util"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:  "simulation",
		Usage: "emulate the rover motion controller on a serial port",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dev", Value: "/tmp/ttyROVER0", Usage: "serial device to serve on"},
			&cli.IntFlag{Name: "baud", Value: 115200, Usage: "baud rate"},
			&cli.StringFlag{Name: "virtual", Usage: "create a socat pair `LEFT,RIGHT` and serve on LEFT"},
			&cli.Float64Flag{Name: "run-scale", Value: 1, Usage: "multiply zone run durations"},
			&cli.IntFlag{Name: "poll-ms", Value: 50, Usage: "read window per loop"},
			&cli.BoolFlag{Name: "debug", Usage: "log every byte"},
		},
		Action: run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := app.RunContext(ctx, os.Args)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	level := "info"
	if c.Bool("debug") {
		level = "debug"
	}
	logger, err := util.NewLogger(level, true)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	dev := c.String("dev")
	if v := c.String("virtual"); v != "" {
		left, right, ok := strings.Cut(v, ",")
		if !ok || left == "" || right == "" {
			return cli.Exit("--virtual expects LEFT,RIGHT", 2)
		}
		socat := util.NewSocatManager(logger)
		defer socat.Cleanup()
		if err := socat.CreatePair(left, right, 3*time.Second); err != nil {
			return err
		}
		dev = left
		logger.Infow("connect the supervisor to the other end", "port", right)
	}

	fw := device.NewArduino(logger.Named("arduino"), nil)
	if scale := c.Float64("run-scale"); scale != 1 {
		for zone, d := range device.DefaultRunDurations {
			fw.SetRunDuration(zone, time.Duration(float64(d)*scale))
		}
	}
	return serve(c.Context, fw, dev, c.Int("baud"), time.Duration(c.Int("poll-ms"))*time.Millisecond, logger)
}

func serve(ctx context.Context, fw *device.Arduino, dev string, baud int, poll time.Duration, logger *zap.SugaredLogger) error {
	port, err := device.OpenSerial(dev, baud, poll, 0)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := port.Close(); cerr != nil {
			logger.Warnw("close serial", "error", cerr)
		}
	}()

	logger.Infow("simulator started", "dev", dev, "baud", baud)
	if err := fw.Serve(ctx, port, poll); err != nil {
		return errors.Wrap(err, "simulator stopped")
	}
	logger.Infow("simulation stopped")
	return nil
}
