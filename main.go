// Copyright 2025 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	terminate "github.com/pulcy/go-terminate"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/binkynet/I2CServer/pkg/client"
	"github.com/binkynet/I2CServer/pkg/config"
	"github.com/binkynet/I2CServer/pkg/environment"
	"github.com/binkynet/I2CServer/pkg/ipc"
	"github.com/binkynet/I2CServer/pkg/logging"
	"github.com/binkynet/I2CServer/pkg/probe"
	"github.com/binkynet/I2CServer/pkg/server"
	"github.com/binkynet/I2CServer/pkg/service"
	"github.com/binkynet/I2CServer/pkg/service/bridge"
	"github.com/binkynet/I2CServer/pkg/service/topology"
	"github.com/binkynet/I2CServer/pkg/util"
)

const (
	projectName       = "BinkyNet I2C Server"
	defaultServerPort = 7130
	endpointName      = "i2c"
	envFile           = ".env"
)

var (
	projectVersion = "dev"
	projectBuild   = "dev"
	maskAny        = errors.WithStack
)

func main() {
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(errors.Cause(err)) {
		Exitf("Failed to load %s: %v\n", envFile, err)
	}

	var levelFlag string
	var configPath string
	var hardwareType string
	var serverHost string
	var serverPort int
	var logFile string
	var devicePattern string
	var queueLength int

	pflag.StringVarP(&levelFlag, "level", "l", envOr("I2CSERVER_LEVEL", "info"), "Set log level")
	pflag.StringVarP(&configPath, "config", "c", os.Getenv("I2CSERVER_CONFIG"), "Path of the board configuration (YAML)")
	pflag.StringVar(&hardwareType, "hardware", envOr("I2CSERVER_HARDWARE", "auto"), "Type of hardware to use (auto|linux|virtual)")
	pflag.StringVar(&serverHost, "host", "0.0.0.0", "Host address the HTTP server will listen on")
	pflag.IntVar(&serverPort, "port", defaultServerPort, "Port the HTTP server will listen on")
	pflag.StringVar(&logFile, "log-file", "", "Path of a file to write logs to")
	pflag.StringVar(&devicePattern, "i2c-device-pattern", "/dev/i2c-%d", "Pattern of i2c-dev device paths (linux hardware)")
	pflag.IntVar(&queueLength, "queue-length", 16, "Number of requests that can be queued for the server")
	pflag.Parse()

	// Prepare to shutdown in a controlled manor
	ctx, cancel := context.WithCancel(context.Background())
	logger, flushLogs, err := logging.NewLogger(ctx, logging.Options{
		Level:    levelFlag,
		FilePath: logFile,
	})
	if err != nil {
		Exitf("Failed to initialize logging: %v\n", err)
	}
	t := terminate.NewTerminator(func(template string, args ...interface{}) {
		logger.Info().Msgf(template, args...)
	}, cancel)
	go t.ListenSignals()

	fmt.Printf("Starting %s (version %s build %s)\n", projectName, projectVersion, projectBuild)
	if err := run(ctx, logger, options{
		configPath:    configPath,
		hardwareType:  hardwareType,
		serverHost:    serverHost,
		serverPort:    serverPort,
		devicePattern: devicePattern,
		queueLength:   queueLength,
	}); err != nil {
		logger.Error().Err(err).Msg("Server failed")
		cancel()
		flushLogs()
		Exitf("Server failed: %v\n", err)
	}
	cancel()
	flushLogs()
}

type options struct {
	configPath    string
	hardwareType  string
	serverHost    string
	serverPort    int
	devicePattern string
	queueLength   int
}

// run the I2C server until the given context is canceled.
func run(ctx context.Context, logger zerolog.Logger, opts options) error {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		cfg, err = config.Load(opts.configPath)
		if err != nil {
			return maskAny(err)
		}
		logger.Info().Str("path", opts.configPath).Msg("Loaded board configuration")
	} else {
		logger.Info().Msg("Using default board configuration")
	}

	if opts.hardwareType == "auto" {
		opts.hardwareType = environment.AutoDetectHardware(logger)
	}
	var hw bridge.Hardware
	var pins bridge.PinFactory
	switch opts.hardwareType {
	case environment.HardwareVirtual:
		hw = bridge.NewVirtual(logger)
		pins = bridge.NewVirtualPins()
	case environment.HardwareLinux:
		lhw, err := bridge.NewLinux(logger, cfg.Linux(opts.devicePattern))
		if err != nil {
			return errors.Wrap(err, "failed to initialize linux hardware")
		}
		defer lhw.Close()
		hw = lhw
		pins = bridge.SysfsPins{}
	default:
		return errors.Errorf("unknown hardware type '%s' (auto|linux|virtual)", opts.hardwareType)
	}
	logger.Info().
		Str("hardware", opts.hardwareType).
		Ints("pins", cfg.Pins()).
		Msg("Selected hardware")

	topoCfg, err := cfg.Topology(pins)
	if err != nil {
		return errors.Wrap(err, "invalid board configuration")
	}
	topo, err := topology.New(logger, topoCfg, hw)
	if err != nil {
		return maskAny(err)
	}

	kernel := ipc.NewKernel()
	ep, err := kernel.Register(endpointName, opts.queueLength)
	if err != nil {
		return maskAny(err)
	}
	svc, err := service.NewService(cfg.Service(), service.Dependencies{
		Logger:   logger,
		Endpoint: ep,
		Hardware: hw,
		Topology: topo,
	})
	if err != nil {
		return maskAny(err)
	}
	probeCfg, err := cfg.ProbeConfig()
	if err != nil {
		return maskAny(err)
	}
	prb, err := probe.New(probeCfg, logger, client.NewConn(ep, ipc.NewTask("probe")))
	if err != nil {
		return maskAny(err)
	}
	httpServer := server.New(server.Config{
		Host: opts.serverHost,
		Port: opts.serverPort,
	}, logger, svc, topo)
	defer httpServer.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Run(ctx) })
	g.Go(func() error { return prb.Run(ctx) })
	g.Go(func() error {
		return util.UntilCanceled(ctx, logger, "HTTP server", func() error {
			return httpServer.Run(ctx)
		})
	})
	err = g.Wait()

	if st, serr := svc.Status(context.Background()); serr == nil && !st.StartedAt.IsZero() {
		logger.Info().
			Str("uptime", time.Since(st.StartedAt).Round(time.Second).String()).
			Str("requests", humanize.Comma(int64(st.Requests))).
			Str("failures", humanize.Comma(int64(st.Failures))).
			Str("dropped", humanize.Comma(int64(st.Dropped))).
			Str("recoveries", humanize.Comma(int64(st.Recoveries))).
			Msg("Stopped")
	}
	if err != nil {
		return errors.Wrap(err, "service run failed")
	}
	return nil
}

func envOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// Print the given error message and exit with code 1
func Exitf(message string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, message, args...)
	os.Exit(1)
}
