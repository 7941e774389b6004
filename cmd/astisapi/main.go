package main

import (
	"flag"

	"github.com/asticode/go-astilog"
	"github.com/asticode/go-astisapi/ducking"
	"github.com/asticode/go-astisapi/sapi5"
	"github.com/asticode/go-astisapi/server"
	"github.com/asticode/go-astisapi/wave"
	asticonfig "github.com/asticode/go-astitools/config"
	astiworker "github.com/asticode/go-astitools/worker"
	"github.com/pkg/errors"
)

// Flags
var (
	config       = flag.String("c", "", "the config path")
	outputDevice = flag.String("o", "", "the audio output device name")
	serverAddr   = flag.String("a", "", "the server addr")
	voice        = flag.String("v", "", "the voice id")
)

func main() {
	// Parse flags
	flag.Parse()
	astilog.FlagInit()

	// Init configuration
	c := newConfiguration()

	// Init worker
	w := astiworker.NewWorker()
	w.HandleSignals()

	// Init wave
	wv, err := wave.New()
	if err != nil {
		astilog.Fatal(errors.Wrap(err, "main: creating wave failed"))
	}
	defer wv.Close()

	// Init ducking. A failed installation disables ducking, it never takes
	// speech down with it.
	c.Ducking.Hooker = newHooker()
	dm := ducking.NewManager(c.Ducking)
	defer dm.Close()
	if err = dm.EnsureHooks(); err != nil {
		astilog.Error(errors.Wrap(err, "main: installing ducking hooks failed"))
	}

	// Init driver
	c.Driver.ResolveOutput = wv.OutputDeviceIndex
	d, err := sapi5.New(c.Driver, sapi5.NewEngine)
	if err != nil {
		astilog.Fatal(errors.Wrap(err, "main: creating driver failed"))
	}
	defer d.Close()

	// Init server
	s := server.New(c.Server, d, w)
	defer s.Close()

	// Serve
	s.Serve()

	// Wait
	w.Wait()
}

// Configuration represents a configuration
type Configuration struct {
	Driver  sapi5.Options   `toml:"driver"`
	Ducking ducking.Options `toml:"ducking"`
	Server  server.Options  `toml:"server"`
}

// newConfiguration creates a new configuration
func newConfiguration() *Configuration {
	// Global config
	gc := &Configuration{
		Server: server.Options{
			Addr: "127.0.0.1:4000",
		},
	}

	// Flag config
	fc := &Configuration{
		Driver: sapi5.Options{
			OutputDevice: *outputDevice,
			Voice:        *voice,
		},
		Server: server.Options{
			Addr: *serverAddr,
		},
	}

	// Build configuration
	c, err := asticonfig.New(gc, *config, fc)
	if err != nil {
		astilog.Fatal(err)
	}
	return c.(*Configuration)
}
