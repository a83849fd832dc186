package processor

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/timzifer/metricdisplay/config"
	"github.com/timzifer/metricdisplay/drivers/console"
	"github.com/timzifer/metricdisplay/drivers/ht16k33"
	"github.com/timzifer/metricdisplay/drivers/shift"
	"github.com/timzifer/metricdisplay/layout"
	"github.com/timzifer/metricdisplay/serviceio"
)

func builtinBackends() map[string]serviceio.BackendFactory {
	return map[string]serviceio.BackendFactory{
		config.BackendShift:   shift.Factory,
		config.BackendHT16K33: ht16k33.Factory,
		config.BackendConsole: console.Factory,
	}
}

func initHost() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("initialise host drivers: %w", err)
	}
	return nil
}

// needsHost reports whether the configured built-ins touch GPIO or I²C.
func needsHost(cfg *config.Config, s settings) bool {
	if _, custom := s.backends[cfg.Display.Backend]; !custom {
		if cfg.Display.Backend == config.BackendShift || cfg.Display.Backend == config.BackendHT16K33 {
			return true
		}
	}
	return s.source == nil && cfg.Layout.Source == config.SourceGPIO
}

func newLayoutSource(cfg config.LayoutConfig) (layout.Source, error) {
	switch cfg.Source {
	case config.SourceStatic:
		return layout.NewStatic(cfg.Static), nil
	case config.SourceFile:
		return layout.NewFile(cfg.File), nil
	case config.SourceGPIO:
		load, err := gpioPin(cfg.GPIO.LoadPin)
		if err != nil {
			return nil, err
		}
		clock, err := gpioPin(cfg.GPIO.ClockPin)
		if err != nil {
			return nil, err
		}
		data, err := gpioPin(cfg.GPIO.DataPin)
		if err != nil {
			return nil, err
		}
		return layout.NewGPIO(layout.GPIOPins{Load: load, Clock: clock, Data: data}, cfg.GPIO.MaxDisplays), nil
	default:
		return nil, fmt.Errorf("unknown layout source %q", cfg.Source)
	}
}

func gpioPin(name string) (gpio.PinIO, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("layout: unknown gpio pin %q", name)
	}
	return pin, nil
}
