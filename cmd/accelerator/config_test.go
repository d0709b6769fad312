/*
@Description: flag parsing for the accelerator CLI
@Language: Go 1.23.4
*/

package main

import (
	"testing"
	"time"

	"github.com/urfave/cli"

	"fecgo"
	"fecgo/galois"
)

// configFromArgs runs newApp() against args the way main() would,
// capturing whatever configFromFlags produces via a global subcommand
// flag, mirroring the teacher's config_test.go style of exercising the
// real flag set rather than hand-building a Configuration.
func configFromArgs(t *testing.T, args ...string) (fecgo.Configuration, error) {
	t.Helper()
	app := newApp()
	var got fecgo.Configuration
	var gotErr error
	// "server" never runs (no sockets are opened) because its Action
	// is overridden here purely to capture configFromFlags' result.
	for i, cmd := range app.Commands {
		if cmd.Name == "server" {
			app.Commands[i].Action = func(c *cli.Context) error {
				got, gotErr = configFromFlags(c)
				return nil
			}
		}
	}
	full := append([]string{"accelerator"}, args...)
	full = append(full, "server")
	if err := app.Run(full); err != nil {
		t.Fatalf("app.Run: %v", err)
	}
	return got, gotErr
}

func TestConfigFromFlagsDefaults(t *testing.T) {
	cfg, err := configFromArgs(t)
	if err != nil {
		t.Fatalf("configFromFlags: %v", err)
	}
	want := fecgo.DefaultConfiguration()
	if cfg != want {
		t.Fatalf("got %+v, want default %+v", cfg, want)
	}
}

func TestConfigFromFlagsOverrides(t *testing.T) {
	cfg, err := configFromArgs(t,
		"-field=16",
		"-code=non_systematic",
		"-rate=3",
		"-window=10",
		"-in-order=false",
		"-adaptive=false",
		"-ack-frequency=0",
		"-ack-nb-packets=7",
	)
	if err != nil {
		t.Fatalf("configFromFlags: %v", err)
	}
	if cfg.GaloisFieldSize != galois.Size16 {
		t.Errorf("GaloisFieldSize = %v, want %v", cfg.GaloisFieldSize, galois.Size16)
	}
	if cfg.CodeType != fecgo.NonSystematic {
		t.Errorf("CodeType = %v, want NonSystematic", cfg.CodeType)
	}
	if cfg.Rate != 3 {
		t.Errorf("Rate = %d, want 3", cfg.Rate)
	}
	if cfg.WindowSize != 10 {
		t.Errorf("WindowSize = %d, want 10", cfg.WindowSize)
	}
	if cfg.InOrder {
		t.Error("InOrder = true, want false")
	}
	if cfg.Adaptive {
		t.Error("Adaptive = true, want false")
	}
	if cfg.AckFrequency != 0 {
		t.Errorf("AckFrequency = %v, want 0", cfg.AckFrequency)
	}
	if cfg.AckNbPackets != 7 {
		t.Errorf("AckNbPackets = %d, want 7", cfg.AckNbPackets)
	}
}

func TestConfigFromFlagsUnknownCodeType(t *testing.T) {
	if _, err := configFromArgs(t, "-code=bogus"); err == nil {
		t.Fatal("expected an error for an unrecognized --code value")
	}
}

func TestConfigFromFlagsAckFrequencyAcceptsDuration(t *testing.T) {
	cfg, err := configFromArgs(t, "-ack-frequency=250ms")
	if err != nil {
		t.Fatalf("configFromFlags: %v", err)
	}
	if cfg.AckFrequency != 250*time.Millisecond {
		t.Errorf("AckFrequency = %v, want 250ms", cfg.AckFrequency)
	}
}
