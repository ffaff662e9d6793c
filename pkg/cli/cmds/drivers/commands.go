// Package drivers exposes the raw hardware drivers as commands.
package drivers

import (
	"fmt"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/tinyrc/pkg/cli/sh"
	"github.com/robotalks/tinyrc/pkg/vehicle"
)

var (
	// MotorsWriteCmd writes a motor driver parameter.
	MotorsWriteCmd = ishell.Cmd{
		Name: "w",
		Help: "pwm DUTY",
		Func: sh.Arity(2, func(c *ishell.Context) {
			v := sh.VehicleFrom(c)
			if v == nil {
				return
			}
			duty, err := sh.FloatArg(c, 1)
			if err != nil {
				c.Err(err)
				return
			}
			if c.Args[0] != "pwm" {
				c.Err(fmt.Errorf("%w: param %q", sh.ErrArgs, c.Args[0]))
				return
			}
			if err := v.Motors.SetPWM(duty); err != nil {
				c.Err(err)
			}
		}),
	}

	// MotorsMoveCmd moves a motor.
	MotorsMoveCmd = ishell.Cmd{
		Name: "move",
		Help: "dc|step DIR DUTY|STEPS",
		Func: sh.Arity(3, func(c *ishell.Context) {
			v := sh.VehicleFrom(c)
			if v == nil {
				return
			}
			dir, err := sh.IntArg(c, 1)
			if err != nil {
				c.Err(err)
				return
			}
			val, err := sh.IntArg(c, 2)
			if err != nil {
				c.Err(err)
				return
			}
			switch c.Args[0] {
			case "dc":
				err = v.Motors.MoveDC(vehicle.Direction(dir), val)
			case "step":
				err = v.Motors.MoveStep(vehicle.Direction(dir), val)
			default:
				err = fmt.Errorf("%w: motor %q", sh.ErrArgs, c.Args[0])
			}
			if err != nil {
				c.Err(err)
			}
		}),
	}

	// LEDOnCmd sets the brightness of a LED.
	LEDOnCmd = ishell.Cmd{
		Name: "on",
		Help: "LED# PERCENT",
		Func: sh.Arity(2, func(c *ishell.Context) {
			v := sh.VehicleFrom(c)
			if v == nil {
				return
			}
			led, err := sh.IntArg(c, 0)
			if err != nil {
				c.Err(err)
				return
			}
			percent, err := sh.IntArg(c, 1)
			if err != nil {
				c.Err(err)
				return
			}
			if err := v.LEDs.SetLED(led, percent); err != nil {
				c.Err(err)
			}
		}),
	}

	// LEDAllOnCmd turns on all LEDs with full brightness.
	LEDAllOnCmd = ishell.Cmd{
		Name: "allon",
		Help: "",
		Func: sh.Arity(0, func(c *ishell.Context) {
			v := sh.VehicleFrom(c)
			if v == nil {
				return
			}
			for i := 0; i < v.LEDs.Count(); i++ {
				if err := v.LEDs.SetLED(i, vehicle.BrightnessFull); err != nil {
					c.Err(err)
					return
				}
			}
		}),
	}

	// LEDResetCmd turns off all LEDs.
	LEDResetCmd = ishell.Cmd{
		Name: "rst",
		Help: "",
		Func: sh.Arity(0, func(c *ishell.Context) {
			if v := sh.VehicleFrom(c); v != nil {
				if err := v.LEDs.Reset(); err != nil {
					c.Err(err)
				}
			}
		}),
	}

	// ChargerStatusCmd prints the battery charger status.
	ChargerStatusCmd = ishell.Cmd{
		Name: "status",
		Help: "",
		Func: sh.Arity(0, func(c *ishell.Context) {
			v := sh.VehicleFrom(c)
			if v == nil {
				return
			}
			if v.Charger == nil {
				c.Err(fmt.Errorf("charger %w", sh.ErrUnavailable))
				return
			}
			status, err := v.Charger.Status()
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(status.String())
		}),
	}
)

func init() {
	sh.AddCmds(
		sh.Group("motors_drv", "motors driver commands", &MotorsWriteCmd, &MotorsMoveCmd),
		sh.Group("led_drivers", "LED drivers commands", &LEDOnCmd, &LEDAllOnCmd, &LEDResetCmd),
		sh.Group("bat_charger", "battery charger commands", &ChargerStatusCmd),
	)
}
