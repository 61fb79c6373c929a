// Copyright (c) 2020-2023, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package macsim_main

import (
	"flag"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/openthread/ot-mac/cli"
	"github.com/openthread/ot-mac/logger"
	"github.com/openthread/ot-mac/pcap"
	"github.com/openthread/ot-mac/progctx"
	"github.com/openthread/ot-mac/simulation"
	. "github.com/openthread/ot-mac/types"
)

type MainArgs struct {
	Speed        string
	AutoGo       bool
	LogLevel     string
	LogFile      string
	Seed         int64
	SimId        int
	OutputDir    string
	Pcap         string
	Plr          float64
	PanId        uint
	Channel      uint
	BeaconOrder  uint
	SuperOrder   uint
	ScanChannels uint
	ScanDuration uint
	ConfigFile   string
	HistoryFile  string
}

var (
	args MainArgs
)

func parseArgs() {
	flag.StringVar(&args.Speed, "speed", "1", "set simulating speed, or 'max'")
	flag.BoolVar(&args.AutoGo, "autogo", true, "auto go (runs the simulation at given speed, without issuing 'go' commands.)")
	flag.StringVar(&args.LogLevel, "log", "warn", "set logging level: micro, trace, debug, info, note, warn, error, off.")
	flag.StringVar(&args.LogFile, "log-file", "", "also write the log to this file")
	flag.Int64Var(&args.Seed, "seed", 0, "random seed of the simulation; 0 for a random one")
	flag.IntVar(&args.SimId, "id", 0, "simulation id, used in output file names")
	flag.StringVar(&args.OutputDir, "out", "tmp", "directory for pcap and KPI files")
	flag.StringVar(&args.Pcap, "pcap", pcap.FrameTypeWpanStr, "pcap frame type: off, wpan, wpan-tap")
	flag.Float64Var(&args.Plr, "plr", 0, "packet loss ratio of the medium")
	flag.UintVar(&args.PanId, "panid", uint(simulation.DefaultPanId), "PAN id of the PAN coordinators")
	flag.UintVar(&args.Channel, "channel", uint(simulation.DefaultChannel), "channel of the PAN coordinators (11-26)")
	flag.UintVar(&args.BeaconOrder, "bo", uint(simulation.DefaultBeaconOrder), "beacon order; 15 for a nonbeacon-enabled PAN")
	flag.UintVar(&args.SuperOrder, "so", uint(simulation.DefaultSuperframeOrder), "superframe order")
	flag.UintVar(&args.ScanChannels, "scan-channels", uint(simulation.DefaultScanChannels), "channel mask scanned by joining nodes")
	flag.UintVar(&args.ScanDuration, "scan-duration", uint(simulation.DefaultScanDuration), "scan duration exponent (0-14)")
	flag.StringVar(&args.ConfigFile, "load", "", "YAML simulation file to load at start")
	flag.StringVar(&args.HistoryFile, "history", "", "CLI history file")

	flag.Parse()
}

func Main(ctx *progctx.ProgCtx, cliOptions *cli.CliOptions) {
	parseArgs()
	level, err := logger.ParseLevelString(args.LogLevel)
	logger.FatalIfError(err)
	logger.SetLevel(level)
	if len(args.LogFile) > 0 {
		logger.SetOutput([]string{"stdout", args.LogFile})
	}

	// run console in the main goroutine
	ctx.Defer(func() {
		_ = os.Stdin.Close()
	})

	handleSignals(ctx)

	sim := createSimulation(ctx, level)
	if len(args.ConfigFile) > 0 {
		loadConfigFile(sim, args.ConfigFile)
	}

	if cliOptions == nil {
		cliOptions = cli.DefaultCliOptions()
	}
	if len(args.HistoryFile) > 0 {
		cliOptions.HistoryFile = args.HistoryFile
	}
	logger.SetStdoutCallback(cli.Cli)

	rt := cli.NewCmdRunner(ctx, sim)
	go sim.Run()
	if args.AutoGo {
		go autoGo(ctx, sim)
	}

	err = cli.Cli.Run(rt, cliOptions)
	ctx.Cancel(errors.Wrapf(err, "console exit"))

	logger.Debugf("waiting for the simulator to stop gracefully ...")
	ctx.Wait()
}

func handleSignals(ctx *progctx.ProgCtx) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGHUP)
	signal.Ignore(syscall.SIGALRM)

	ctx.WaitAdd("handleSignals", 1)
	go func() {
		defer logger.Debugf("handleSignals exit.")
		defer ctx.WaitDone("handleSignals")

		for {
			select {
			case sig := <-c:
				logger.Infof("signal received: %v", sig)
				ctx.Cancel(nil)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func autoGo(ctx *progctx.ProgCtx, sim *simulation.Simulation) {
	for {
		<-sim.Go(100 * time.Millisecond)
		if ctx.Err() != nil { // exit when context is Done.
			return
		}
	}
}

func parseSpeed(s string) (float64, error) {
	s = strings.ToLower(s)
	if s == "max" {
		return simulation.MaxSimulateSpeed, nil
	}
	return strconv.ParseFloat(s, 64)
}

func createSimulation(ctx *progctx.ProgCtx, level logger.Level) *simulation.Simulation {
	simcfg := simulation.DefaultConfig()

	speed, err := parseSpeed(args.Speed)
	logger.FatalIfError(err, "invalid speed")
	simcfg.Speed = speed
	simcfg.AutoGo = args.AutoGo
	simcfg.LogLevel = level
	simcfg.RandomSeed = args.Seed
	if simcfg.RandomSeed == 0 {
		simcfg.RandomSeed = time.Now().UnixNano()
	}
	simcfg.Id = args.SimId
	simcfg.OutputDir = args.OutputDir
	simcfg.PcapType = pcap.ParseFrameTypeStr(args.Pcap)
	if simcfg.PcapType == pcap.FrameTypeUnknown {
		logger.Fatalf("invalid pcap frame type: %s", args.Pcap)
	}
	simcfg.PacketLossRatio = args.Plr
	simcfg.PanId = uint16(args.PanId)
	simcfg.Channel = ChannelId(args.Channel)
	simcfg.BeaconOrder = uint8(args.BeaconOrder)
	simcfg.SuperframeOrder = uint8(args.SuperOrder)
	simcfg.ScanChannels = uint32(args.ScanChannels)
	simcfg.ScanDuration = uint8(args.ScanDuration)

	sim, err := simulation.NewSimulation(ctx, simcfg)
	logger.FatalIfError(err)
	return sim
}

// loadConfigFile applies a YAML simulation file before the run loop starts.
func loadConfigFile(sim *simulation.Simulation, fn string) {
	cfgFile, err := simulation.LoadYamlConfigFile(fn)
	logger.FatalIfError(err)
	logger.FatalIfError(cfgFile.MacConfig.Apply(sim.Config()))
	logger.FatalIfError(sim.ImportNodes(cfgFile.NetworkConfig, cfgFile.NodesList))
}
