package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"io"

	"github.com/golang/glog"

	"github.com/openecu/tune.go/pkg/framework"
	"github.com/openecu/tune.go/pkg/link/env"
	"github.com/openecu/tune.go/pkg/link/mqtt"
)

func init() {
	env.SetupFlags()
}

// pipe copies one direction of the bridge. The closer, when set, is
// closed on cancellation to unblock an in-flight src.Read.
type pipe struct {
	name   string
	src    io.Reader
	dst    io.Writer
	closer io.Closer
}

func (p *pipe) Name() string {
	return p.name
}

func (p *pipe) Run(ctx context.Context) error {
	copyLoop := func() error {
		buf := make([]byte, 512)
		for {
			n, err := p.src.Read(buf)
			if n > 0 {
				if _, werr := p.dst.Write(buf[:n]); werr != nil {
					return werr
				}
			}
			if err != nil {
				return err
			}
		}
	}
	if p.closer != nil {
		return framework.RunWithContextCloser(ctx, p.closer, copyLoop)
	}
	return framework.RunWithContext(ctx, copyLoop)
}

func main() {
	flag.Parse()

	conf := env.NewConfig()
	port, err := conf.OpenPort()
	if err != nil {
		glog.Exitf("open port: %v", err)
	}

	queue, err := conf.NewQueue()
	if err != nil {
		glog.Exitf("broker config: %v", err)
	}
	token := queue.Connect()
	token.Wait()
	if err = token.Error(); err != nil {
		glog.Exitf("broker connect: %v", err)
	}
	defer queue.Close()

	rw := mqtt.NewReadWriter(queue).ForDevice(conf.Device)
	glog.Infof("bridging %s as %q via %s", conf.Port, conf.Device, conf.BrokerURL)

	runner := framework.NewRunner().HandleSignals()
	runner.Go(
		framework.NamedRun("mqtt", rw),
		// the serial reader owns the port handle so cancellation can
		// close it out from under a blocking Read
		&pipe{name: "serial-to-broker", src: port, dst: rw, closer: port},
		&pipe{name: "broker-to-serial", src: rw, dst: port},
	)
	if err := runner.Wait(); err != nil {
		glog.Exitln(err)
	}
}
