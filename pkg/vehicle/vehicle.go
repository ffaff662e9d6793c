// Package vehicle implements the tinyrc profile on top of the LED, motor and
// charger drivers.
package vehicle

import (
	"errors"
	"fmt"
)

// Direction is the motor direction.
type Direction uint8

// Motor directions.
const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	}
	return fmt.Sprintf("Direction(%d)", uint8(d))
}

// ErrInvalidArgument indicates a driver rejected a parameter.
var ErrInvalidArgument = errors.New("invalid argument")

// LEDDriver drives the LED channels.
type LEDDriver interface {
	// SetLED sets LED idx to a brightness percentage in [0, 100].
	SetLED(idx int, percent int) error
	// Reset turns all LEDs off.
	Reset() error
	// Count returns the number of LED channels.
	Count() int
}

// MotorDriver drives the DC motor and the steering stepper.
type MotorDriver interface {
	// SetPWM sets the raw DC duty cycle in [0, 1].
	SetPWM(duty float64) error
	// MoveDC runs the DC motor at duty percent in [0, 100].
	MoveDC(dir Direction, duty int) error
	// MoveStep moves the stepper by steps.
	MoveStep(dir Direction, steps int) error
}

// ChargerStatus is reported by the battery charger.
type ChargerStatus int

// Charger states.
const (
	ChargerIdle ChargerStatus = iota
	ChargerCharging
)

func (s ChargerStatus) String() string {
	switch s {
	case ChargerIdle:
		return "idle"
	case ChargerCharging:
		return "charging"
	}
	return fmt.Sprintf("ChargerStatus(%d)", int(s))
}

// Charger reports the battery charger state.
type Charger interface {
	Status() (ChargerStatus, error)
}

// Drivers groups the hardware of a vehicle.
type Drivers struct {
	LEDs    LEDDriver
	Motors  MotorDriver
	Charger Charger
}
