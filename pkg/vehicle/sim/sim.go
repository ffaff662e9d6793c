// Package sim provides simulated vehicle drivers which validate parameters
// like the hardware drivers and record the resulting state.
package sim

import (
	"fmt"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/tinyrc/pkg/vehicle"
)

// LEDs simulates the LED driver.
type LEDs struct {
	lock  sync.Mutex
	state []int
}

// NewLEDs creates LEDs with count channels.
func NewLEDs(count int) *LEDs {
	return &LEDs{state: make([]int, count)}
}

// SetLED implements vehicle.LEDDriver.
func (l *LEDs) SetLED(idx int, percent int) error {
	if idx < 0 || idx >= len(l.state) || percent < 0 || percent > 100 {
		glog.Errorf("invalid parameter, led: %d, percent: %d", idx, percent)
		return fmt.Errorf("led %d %d%%: %w", idx, percent, vehicle.ErrInvalidArgument)
	}
	l.lock.Lock()
	l.state[idx] = percent
	l.lock.Unlock()
	glog.V(2).Infof("set led %d to %d%%", idx, percent)
	return nil
}

// Reset implements vehicle.LEDDriver.
func (l *LEDs) Reset() error {
	l.lock.Lock()
	for i := range l.state {
		l.state[i] = 0
	}
	l.lock.Unlock()
	glog.V(2).Info("leds reset")
	return nil
}

// Count implements vehicle.LEDDriver.
func (l *LEDs) Count() int {
	return len(l.state)
}

// Get returns the brightness of LED idx.
func (l *LEDs) Get(idx int) int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.state[idx]
}

// Snapshot copies the brightness of all LEDs.
func (l *LEDs) Snapshot() []int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append([]int(nil), l.state...)
}

// MotorState is the state of the simulated motors.
type MotorState struct {
	PWM      float64
	DCDir    vehicle.Direction
	DCDuty   int
	Position int
}

// Motors simulates the DC motor and steering stepper driver.
type Motors struct {
	lock  sync.Mutex
	state MotorState
}

// SetPWM implements vehicle.MotorDriver.
func (m *Motors) SetPWM(duty float64) error {
	if duty < 0 || duty > 1 {
		glog.Errorf("invalid duty cycle value: %f", duty)
		return fmt.Errorf("duty %v: %w", duty, vehicle.ErrInvalidArgument)
	}
	m.lock.Lock()
	m.state.PWM = duty
	m.lock.Unlock()
	return nil
}

// MoveDC implements vehicle.MotorDriver.
func (m *Motors) MoveDC(dir vehicle.Direction, duty int) error {
	if err := validDir(dir); err != nil {
		return err
	}
	if duty < 0 || duty > 100 {
		glog.Errorf("invalid duty cycle percent value: %d", duty)
		return fmt.Errorf("duty %d%%: %w", duty, vehicle.ErrInvalidArgument)
	}
	m.lock.Lock()
	m.state.DCDir, m.state.DCDuty = dir, duty
	m.state.PWM = float64(duty) / 100
	m.lock.Unlock()
	glog.V(2).Infof("dc %s %d%%", dir, duty)
	return nil
}

// MoveStep implements vehicle.MotorDriver.
func (m *Motors) MoveStep(dir vehicle.Direction, steps int) error {
	if err := validDir(dir); err != nil {
		return err
	}
	if steps < 0 {
		return fmt.Errorf("steps %d: %w", steps, vehicle.ErrInvalidArgument)
	}
	m.lock.Lock()
	if dir == vehicle.Forward {
		m.state.Position += steps
	} else {
		m.state.Position -= steps
	}
	m.lock.Unlock()
	glog.V(2).Infof("step %s %d", dir, steps)
	return nil
}

// State returns the current motor state.
func (m *Motors) State() MotorState {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.state
}

func validDir(dir vehicle.Direction) error {
	if dir != vehicle.Forward && dir != vehicle.Backward {
		return fmt.Errorf("direction %d: %w", dir, vehicle.ErrInvalidArgument)
	}
	return nil
}

// Charger simulates the battery charger.
type Charger struct {
	Charging bool
}

// Status implements vehicle.Charger.
func (c *Charger) Status() (vehicle.ChargerStatus, error) {
	if c.Charging {
		return vehicle.ChargerCharging, nil
	}
	return vehicle.ChargerIdle, nil
}

// NewDrivers creates a complete set of simulated drivers.
func NewDrivers() (vehicle.Drivers, *LEDs, *Motors) {
	leds, motors := NewLEDs(vehicle.LEDCount), &Motors{}
	return vehicle.Drivers{LEDs: leds, Motors: motors, Charger: &Charger{}}, leds, motors
}
