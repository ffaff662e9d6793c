package main

import (
	"context"
	"flag"
	"io"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/tinyrc/pkg/bridge"
	_ "github.com/robotalks/tinyrc/pkg/cli/cmds/all"
	"github.com/robotalks/tinyrc/pkg/cli/sh"
	"github.com/robotalks/tinyrc/pkg/env"
	fx "github.com/robotalks/tinyrc/pkg/framework"
	"github.com/robotalks/tinyrc/pkg/link"
	"github.com/robotalks/tinyrc/pkg/uart"
	"github.com/robotalks/tinyrc/pkg/uart/adapter"
	"github.com/robotalks/tinyrc/pkg/vehicle"
	"github.com/robotalks/tinyrc/pkg/vehicle/sim"
)

const description = "tinyRC vehicle"

// stdio is the wired console when no serial device is configured.
type stdio struct {
	io.Reader
	io.Writer
}

func (stdio) Close() error {
	return os.Stdin.Close()
}

func init() {
	env.SetupFlags()
}

func openConsole(conf *env.Config) io.ReadWriteCloser {
	if conf.SerialDevice == "" {
		glog.Info("no serial device, using stdio")
		return stdio{Reader: os.Stdin, Writer: os.Stdout}
	}
	port, err := conf.OpenSerial()
	if err != nil {
		glog.Fatal(err)
	}
	return port
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf := env.Default()
	pool := conf.NewPool()

	drivers, _, _ := sim.NewDrivers()
	profile := vehicle.NewProfile(drivers)
	defer profile.Close()

	port := openConsole(conf)
	periph := adapter.New(port)
	tr := uart.NewTransport(periph, pool)
	tr.RetryDelay = conf.RetryDelay
	tr.Lines, tr.TxQueue = conf.NewQueue(), conf.NewQueue()
	tr.Banner = "Starting " + description + " " + conf.Ref.Name() + "\r\n"

	shell := sh.New(profile, tr)

	var wireless link.Link
	outbound := conf.NewQueue()
	l := conf.MustNewLink(link.Meta{Description: description, Commands: sh.Commands()})
	if l != nil {
		wireless = l
		if adv, ok := l.(link.Advertiser); ok {
			shell.Advertiser = adv
		}
	} else if conf.ForwardWired {
		glog.Warning("no wireless link, serial lines are executed")
		conf.ForwardWired = false
	}

	b := bridge.New(tr, wireless, outbound, pool, shell)
	b.ForwardWired = conf.ForwardWired
	shell.Notifier = b

	runner := fx.NewRunner().HandleSignals()
	runner.Go(
		fx.NamedRun("uart", fx.RunFunc(func(ctx context.Context) error {
			return fx.RunWithContextCloser(ctx, port, func() error {
				return periph.Run(ctx)
			})
		})),
		fx.NamedRun("transport", tr),
		fx.NamedRun("bridge", b),
	)
	if l != nil {
		runner.Go(
			fx.NamedRun("link", l),
			fx.NamedRun("forwarder", link.NewForwarder(outbound, l, pool)),
		)
	}

	glog.Infof("%s %s started", description, conf.Ref.Name())
	if err := runner.Wait(); err != nil {
		glog.Error(err)
		glog.Flush()
		os.Exit(1)
	}
}
