// Package main is the rover supervisor. It listens for spoken commands and
// drives the motion controller either to a zone or in QR follow mode.
package main

import (
	"VoiceRover/internal/core"
	"VoiceRover/internal/model"
	"VoiceRover/internal/parser"
	"VoiceRover/internal/util"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"
)

const (
	// Flags.
	flagConfig       = "config"
	flagDebug        = "debug"
	flagPhrases      = "phrases"
	flagObservations = "observations"
	flagMonitor      = "monitor"

	sourceStdin  = "stdin"
	sourceWS     = "ws"
	sourceCamera = "camera"
)

func main() {
	var (
		logger = zap.NewNop().Sugar()
		cfg    model.Config
	)

	app := &cli.App{
		Name:  "rover",
		Usage: "voice and QR supervisor for the rover motion controller",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			var err error
			cfg, err = core.LoadConfig(c.String(flagConfig))
			if err != nil {
				return err
			}
			level := cfg.Log.Level
			if c.Bool(flagDebug) {
				level = "debug"
			}
			logger, err = util.NewLogger(level, cfg.Log.Development)
			return err
		},
		After: func(c *cli.Context) error {
			_ = logger.Sync()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "listen",
				Usage: "wait for a phrase, then run the selected mode",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagPhrases,
						Value: sourceStdin,
						Usage: "phrase source: stdin or ws",
					},
					observationsFlag(),
					monitorFlag(),
				},
				Action: func(c *cli.Context) error {
					return listen(c, cfg, logger)
				},
			},
			{
				Name:      "send",
				Usage:     "send one command through the protocol",
				ArgsUsage: "zone-1|zone-2|zone-3|left|right|forward|backward|stop|cancel|follow|stop-follow",
				Action: func(c *cli.Context) error {
					return send(c, cfg, logger)
				},
			},
			{
				Name:  "follow",
				Usage: "enter follow mode without waiting for a phrase",
				Flags: []cli.Flag{observationsFlag(), monitorFlag()},
				Action: func(c *cli.Context) error {
					return follow(c, cfg, logger)
				},
			},
			{
				Name:   "ports",
				Usage:  "list serial ports",
				Action: func(c *cli.Context) error { return ports() },
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := app.RunContext(ctx, os.Args)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func observationsFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  flagObservations,
		Value: sourceWS,
		Usage: "observation source: ws, stdin or camera",
	}
}

func monitorFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  flagMonitor,
		Usage: "serve /ws/events with every tracking decision",
	}
}

func listen(c *cli.Context, cfg model.Config, logger *zap.SugaredLogger) error {
	if c.String(flagPhrases) == "" {
		return cli.Exit("listen needs a phrase source", 2)
	}
	sys, err := core.NewSystem(cfg, nil, logger)
	if err != nil {
		return err
	}
	in, err := openInputs(cfg, c.String(flagPhrases), c.String(flagObservations), c.Bool(flagMonitor), logger)
	if err != nil {
		return err
	}
	defer closeInputs(in, logger)

	coord := sys.Coordinator(in.observations)
	if in.hub != nil {
		coord.OnDecision(in.hub.PublishDecision)
	}
	logger.Infow("listening", "phrases", c.String(flagPhrases), "observations", c.String(flagObservations))
	res, err := coord.Run(c.Context, in.phrases)
	report(res)
	return err
}

func follow(c *cli.Context, cfg model.Config, logger *zap.SugaredLogger) error {
	sys, err := core.NewSystem(cfg, nil, logger)
	if err != nil {
		return err
	}
	in, err := openInputs(cfg, "", c.String(flagObservations), c.Bool(flagMonitor), logger)
	if err != nil {
		return err
	}
	defer closeInputs(in, logger)

	coord := sys.Coordinator(in.observations)
	if in.hub != nil {
		coord.OnDecision(in.hub.PublishDecision)
	}
	res, err := coord.Follow(c.Context)
	report(res)
	return err
}

func send(c *cli.Context, cfg model.Config, logger *zap.SugaredLogger) error {
	if c.NArg() != 1 {
		return cli.Exit("send takes exactly one command name", 2)
	}
	cmd, err := parser.ParseCommandName(c.Args().First())
	if err != nil {
		return err
	}
	sys, err := core.NewSystem(cfg, nil, logger)
	if err != nil {
		return err
	}
	out := sys.Protocol.Send(c.Context, cmd)
	fmt.Printf("%s: %s\n", cmd, out.Status)
	if len(out.Reply) > 0 {
		fmt.Printf("reply: %s\n", parser.ReplyText(out.Reply))
	}
	if !out.OK() {
		return cli.Exit(fmt.Sprintf("%s %s: %v", cmd, out.Status, out.Err), 1)
	}
	return nil
}

func ports() error {
	list, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return errors.Wrap(err, "enumerate serial ports")
	}
	if len(list) == 0 {
		fmt.Println("no serial ports found")
		return nil
	}
	for _, p := range list {
		if p.IsUSB {
			fmt.Printf("%s\tusb %s:%s serial=%s %s\n", p.Name, p.VID, p.PID, p.SerialNumber, p.Product)
		} else {
			fmt.Println(p.Name)
		}
	}
	return nil
}

func report(res core.Result) {
	switch res.Mode {
	case model.ModePointCommand:
		fmt.Printf("mode=%s command=%s status=%s\n", res.Mode, res.Command, res.Outcome.Status)
	case model.ModeTracking:
		fmt.Printf("mode=%s ticks=%d\n", res.Mode, res.Ticks)
	default:
		fmt.Printf("mode=%s\n", res.Mode)
	}
}
