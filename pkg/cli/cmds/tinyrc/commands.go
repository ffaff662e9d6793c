// Package tinyrc provides the vehicle profile commands.
package tinyrc

import (
	"fmt"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/tinyrc/pkg/cli/sh"
	"github.com/robotalks/tinyrc/pkg/vehicle"
)

var (
	// MoveCmd steers or drives the vehicle.
	MoveCmd = ishell.Cmd{
		Name: "m",
		Help: "move l|r|f|b VALUE",
		Func: sh.Arity(2, func(c *ishell.Context) {
			v := sh.VehicleFrom(c)
			if v == nil {
				return
			}
			val, err := sh.IntArg(c, 1)
			if err != nil {
				c.Err(err)
				return
			}
			switch c.Args[0] {
			case "l":
				err = v.Steer(vehicle.Forward, val)
			case "r":
				err = v.Steer(vehicle.Backward, val)
			case "f":
				err = v.Drive(vehicle.Forward, val)
			case "b":
				err = v.Drive(vehicle.Backward, val)
			default:
				err = fmt.Errorf("%w: direction %q", sh.ErrArgs, c.Args[0])
			}
			if err != nil {
				c.Err(err)
			}
		}),
	}

	// StopCmd stops the vehicle.
	StopCmd = ishell.Cmd{
		Name: "s",
		Help: "stop",
		Func: sh.Arity(0, func(c *ishell.Context) {
			if v := sh.VehicleFrom(c); v != nil {
				if err := v.Stop(); err != nil {
					c.Err(err)
				}
			}
		}),
	}

	// LightCmd controls the LEDs.
	LightCmd = ishell.Cmd{
		Name: "l",
		Help: "LED def|on|off|bl|br [0|1]",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 || len(c.Args) > 2 {
				c.Err(fmt.Errorf("%w: LED mode required", sh.ErrArgs))
				return
			}
			v := sh.VehicleFrom(c)
			if v == nil {
				return
			}
			var err error
			switch c.Args[0] {
			case "def":
				err = v.SetDefault()
			case "on":
				err = v.SetAll(true)
			case "off":
				err = v.SetAll(false)
			case "bl":
				err = setBlinker(c, v, vehicle.Left)
			case "br":
				err = setBlinker(c, v, vehicle.Right)
			default:
				err = fmt.Errorf("%w: LED mode %q", sh.ErrArgs, c.Args[0])
			}
			if err != nil {
				c.Err(err)
			}
		},
	}
)

func setBlinker(c *ishell.Context, v *vehicle.Profile, side vehicle.Side) error {
	if len(c.Args) < 2 {
		return fmt.Errorf("%w: blinker state required", sh.ErrArgs)
	}
	switch c.Args[1] {
	case "1":
		return v.SetBlinker(side, true)
	case "0":
		return v.SetBlinker(side, false)
	}
	return fmt.Errorf("%w: blinker state %q", sh.ErrArgs, c.Args[1])
}

func init() {
	sh.AddCmds(sh.Group("tinyrc", "tinyRC profile commands", &MoveCmd, &StopCmd, &LightCmd))
}
