/*
@Description: two-process UDP accelerator wiring a pair of fecgo codecs
@Language: Go 1.23.4
*/

// Command accelerator is the example transport spec.md names: a
// transcoder that proxies UDP datagrams between a local application
// and a remote peer through an Encoder/Decoder pair, demonstrating the
// codec's transport-agnostic callback contract end to end (see
// SPEC_FULL.md §4, grounded on the original's accelerator/client.cc
// and examples/accelerator/accelerator.cc).
package main

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/urfave/cli"
	"go.uber.org/zap"

	"fecgo"
	"fecgo/galois"
)

// Wire packet type tags, matching spec §4.6's table (fecgo itself
// keeps this unexported; the accelerator needs it only to decide which
// of its two codecs a tunnel datagram belongs to).
const (
	tagSource = 0x01
	tagRepair = 0x02
	tagAck    = 0x03
)

// newApp builds the CLI surface (flags + server/client subcommands).
// Factored out of main so config_test.go can exercise configFromFlags
// through the same flag parsing path main() uses, the way the
// teacher's kcptun grounds its own client/config_test.go and
// server/config_test.go against the real flag set.
func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "accelerator"
	app.Usage = "UDP FEC accelerator: server(with fecgo) / client(with fecgo)"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "listen, l", Value: ":29900", Usage: "tunnel listen address (server mode)"},
		cli.StringFlag{Name: "peer, p", Value: "", Usage: "peer tunnel address (client mode: server's listen address)"},
		cli.StringFlag{Name: "app, a", Value: "127.0.0.1:29901", Usage: "local application address to proxy"},
		cli.IntFlag{Name: "field", Value: 8, Usage: "galois field size: 4, 8, 16 or 32"},
		cli.StringFlag{Name: "code", Value: "systematic", Usage: "systematic or non_systematic"},
		cli.UintFlag{Name: "rate", Value: 5, Usage: "sources per repair"},
		cli.UintFlag{Name: "window", Value: 0, Usage: "encoder window size (0 = unbounded)"},
		cli.BoolTFlag{Name: "in-order", Usage: "deliver sources in ascending id order"},
		cli.BoolTFlag{Name: "adaptive", Usage: "adjust repair rate from ack feedback"},
		cli.DurationFlag{Name: "ack-frequency", Value: 100 * time.Millisecond, Usage: "max time before an ack is sent (0 disables)"},
		cli.UintFlag{Name: "ack-nb-packets", Value: 50, Usage: "packets received before an ack is forced"},
	}
	app.Commands = []cli.Command{
		{
			Name:   "server",
			Usage:  "accept a tunnel connection and proxy to --app",
			Action: func(c *cli.Context) error { return run(c, true) },
		},
		{
			Name:   "client",
			Usage:  "dial --peer and proxy from --app",
			Action: func(c *cli.Context) error { return run(c, false) },
		},
	}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func configFromFlags(c *cli.Context) (fecgo.Configuration, error) {
	cfg := fecgo.DefaultConfiguration()
	cfg.GaloisFieldSize = galois.Size(c.GlobalInt("field"))
	switch c.GlobalString("code") {
	case "systematic":
		cfg.CodeType = fecgo.Systematic
	case "non_systematic":
		cfg.CodeType = fecgo.NonSystematic
	default:
		return cfg, fmt.Errorf("accelerator: unknown --code %q", c.GlobalString("code"))
	}
	cfg.Rate = c.GlobalUint("rate")
	cfg.WindowSize = c.GlobalUint("window")
	cfg.InOrder = c.GlobalBoolT("in-order")
	cfg.Adaptive = c.GlobalBoolT("adaptive")
	cfg.AckFrequency = c.GlobalDuration("ack-frequency")
	cfg.AckNbPackets = uint16(c.GlobalUint("ack-nb-packets"))
	return cfg, nil
}

// run wires one accelerator instance: a UDP socket to the local
// application, a UDP socket for the tunnel, and an Encoder/Decoder
// pair bridging the two in both directions. isServer selects whether
// the tunnel socket binds --listen and takes its peer from whichever
// address sent the latest datagram, or binds an ephemeral port and
// sends to the fixed --peer address (both sides run the identical
// transcoding logic below, matching the original's symmetric
// transcoder).
func run(c *cli.Context, isServer bool) error {
	cfg, err := configFromFlags(c)
	if err != nil {
		return err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()
	log := logger.Sugar()

	appAddr, err := net.ResolveUDPAddr("udp", c.GlobalString("app"))
	if err != nil {
		return fmt.Errorf("accelerator: resolve --app: %w", err)
	}
	appConn, err := net.DialUDP("udp", nil, appAddr)
	if err != nil {
		return fmt.Errorf("accelerator: dial --app: %w", err)
	}
	defer appConn.Close()

	var tunnelConn *net.UDPConn
	var fixedPeer *net.UDPAddr
	if isServer {
		listenAddr, err := net.ResolveUDPAddr("udp", c.GlobalString("listen"))
		if err != nil {
			return fmt.Errorf("accelerator: resolve --listen: %w", err)
		}
		tunnelConn, err = net.ListenUDP("udp", listenAddr)
		if err != nil {
			return fmt.Errorf("accelerator: listen --listen: %w", err)
		}
	} else {
		peerAddr, err := net.ResolveUDPAddr("udp", c.GlobalString("peer"))
		if err != nil {
			return fmt.Errorf("accelerator: resolve --peer: %w", err)
		}
		tunnelConn, err = net.ListenUDP("udp", &net.UDPAddr{})
		if err != nil {
			return fmt.Errorf("accelerator: allocate tunnel socket: %w", err)
		}
		fixedPeer = peerAddr
	}
	defer tunnelConn.Close()

	tun := newTunnel(tunnelConn, fixedPeer, log)

	enc, err := fecgo.NewEncoder(cfg, tun.send, logger)
	if err != nil {
		return fmt.Errorf("accelerator: new encoder: %w", err)
	}
	dec, err := fecgo.NewDecoder(cfg, tun.send, func(payload []byte) {
		if _, err := appConn.Write(payload); err != nil {
			log.Warnw("app write failed", "error", err)
		}
	}, logger)
	if err != nil {
		return fmt.Errorf("accelerator: new decoder: %w", err)
	}

	log.Infow("accelerator started", "server", isServer, "app", appAddr, "config", cfg)

	go ackTicker(dec)
	go pumpApp(appConn, enc, log)
	pumpTunnel(tun, enc, dec, log)
	return nil
}

// pumpApp reads payloads from the local application and admits each
// one to the encoder; the encoder's emit callback (tun.send) does the
// actual write to the tunnel socket.
func pumpApp(appConn *net.UDPConn, enc *fecgo.Encoder, log *zap.SugaredLogger) {
	buf := make([]byte, 65536)
	for {
		n, err := appConn.Read(buf)
		if err != nil {
			log.Warnw("app read failed", "error", err)
			return
		}
		if _, err := enc.Admit(buf[:n]); err != nil {
			log.Warnw("admit rejected", "error", err)
		}
	}
}

// pumpTunnel reads batches of tunnel datagrams and routes each one by
// its leading type tag: acks go to the encoder, sources and repairs go
// to the decoder (spec §6's two on_incoming_packet entry points,
// sharing one socket here the way the original's transcoder does).
func pumpTunnel(tun *tunnel, enc *fecgo.Encoder, dec *fecgo.Decoder, log *zap.SugaredLogger) {
	scratch := make([][]byte, batchSize)
	for i := range scratch {
		scratch[i] = make([]byte, 65536)
	}
	for {
		pkts, err := tun.recvBatch(scratch)
		if err != nil {
			log.Warnw("tunnel read failed", "error", err)
			return
		}
		for _, pkt := range pkts {
			if len(pkt) == 0 {
				continue
			}
			var routeErr error
			switch pkt[0] {
			case tagAck:
				_, routeErr = enc.OnIncomingPacket(pkt)
			case tagSource, tagRepair:
				_, routeErr = dec.OnIncomingPacket(pkt)
			default:
				log.Debugw("dropping unrecognized tunnel packet", "tag", pkt[0])
				continue
			}
			if routeErr != nil {
				log.Debugw("tunnel packet rejected", "error", routeErr)
			}
		}
	}
}

// ackTicker drives the decoder's time-based ack threshold; a real
// deployment would fold this into the same event loop as pumpTunnel,
// but a plain ticker keeps this example small.
func ackTicker(dec *fecgo.Decoder) {
	freq := dec.Configuration().AckFrequency
	if freq <= 0 {
		return
	}
	t := time.NewTicker(freq)
	defer t.Stop()
	for range t.C {
		dec.MaybeAck()
	}
}
