package vehicle

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/tinyrc/pkg/framework"
)

// LED channels. Back LEDs come first, front LEDs are numbered from right
// to left.
const (
	LEDRedBackLeft = iota
	LEDBlueBackLeft
	LEDGreenBackLeft
	LEDRedBackCenter
	LEDBlueBackCenter
	LEDGreenBackCenter
	LEDRedBackRight
	LEDBlueBackRight
	LEDGreenBackRight
	LEDRedFrontRight
	LEDBlueFrontRight
	LEDGreenFrontRight
	LEDRedFrontCenter
	LEDBlueFrontCenter
	LEDGreenFrontCenter
	LEDRedFrontLeft
	LEDBlueFrontLeft
	LEDGreenFrontLeft

	LEDCount
)

// Brightness percentages.
const (
	BrightnessDefault = 10
	BrightnessBlinker = 100
	BrightnessFull    = 100
)

// DefaultBlinkerPeriod is the blinker half period.
const DefaultBlinkerPeriod = 250 * time.Millisecond

// Side selects a blinker.
type Side int

// Blinker sides.
const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

var (
	defaultLEDs = []int{
		LEDRedFrontLeft, LEDBlueFrontLeft, LEDGreenFrontLeft,
		LEDRedFrontCenter, LEDBlueFrontCenter, LEDGreenFrontCenter,
		LEDRedFrontRight, LEDBlueFrontRight, LEDGreenFrontRight,
		LEDRedBackLeft, LEDRedBackCenter, LEDRedBackRight,
	}

	blinkerLEDs = map[Side][]int{
		Left:  {LEDRedFrontLeft, LEDBlueFrontLeft, LEDGreenFrontLeft, LEDRedBackLeft},
		Right: {LEDRedFrontRight, LEDBlueFrontRight, LEDGreenFrontRight, LEDRedBackRight},
	}
)

// Profile is the tinyrc vehicle behavior: lights and motion.
type Profile struct {
	Drivers
	BlinkerPeriod time.Duration

	lock       sync.Mutex
	blinker    *fx.DelayedWork
	toggle     bool
	defEnabled bool
	blinking   [2]bool
}

// NewProfile creates a Profile over drivers.
func NewProfile(drivers Drivers) *Profile {
	p := &Profile{Drivers: drivers, BlinkerPeriod: DefaultBlinkerPeriod}
	p.blinker = fx.NewDelayedWork(p.blink)
	return p
}

// SetDefault turns on the white front lights and red back lights with
// default brightness. The default mode is restored when blinkers stop.
func (p *Profile) SetDefault() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.setDefaultLocked()
}

// SetAll turns all LEDs on with full brightness, or resets all of them.
// Turning off also stops the blinkers and leaves the default mode.
func (p *Profile) SetAll(on bool) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if on {
		for i := 0; i < p.LEDs.Count(); i++ {
			if err := p.LEDs.SetLED(i, BrightnessFull); err != nil {
				return fmt.Errorf("led %d: %w", i, err)
			}
		}
		return nil
	}
	return p.offLocked()
}

// SetBlinker enables or disables the blinker on side.
func (p *Profile) SetBlinker(side Side, enable bool) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.blinking[side] = enable
	glog.Infof("%s blinker: %v", side, enable)
	if p.blinking[Left] || p.blinking[Right] {
		p.blinker.Schedule(p.BlinkerPeriod)
		return nil
	}
	p.blinker.Cancel()
	p.toggle = false
	if p.defEnabled {
		return p.setDefaultLocked()
	}
	return p.offLocked()
}

// Blinking tells whether the blinker on side is enabled.
func (p *Profile) Blinking(side Side) bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.blinking[side]
}

// Steer moves the steering stepper.
func (p *Profile) Steer(dir Direction, steps int) error {
	return p.Motors.MoveStep(dir, steps)
}

// Drive runs the DC motor at duty percent.
func (p *Profile) Drive(dir Direction, duty int) error {
	return p.Motors.MoveDC(dir, duty)
}

// Stop stops the DC motor.
func (p *Profile) Stop() error {
	return p.Motors.MoveDC(Forward, 0)
}

// Close stops the blinker.
func (p *Profile) Close() error {
	p.lock.Lock()
	p.blinking = [2]bool{}
	p.blinker.Cancel()
	p.lock.Unlock()
	return nil
}

func (p *Profile) setDefaultLocked() error {
	p.defEnabled = true
	for _, led := range defaultLEDs {
		if err := p.LEDs.SetLED(led, BrightnessDefault); err != nil {
			return fmt.Errorf("led %d: %w", led, err)
		}
	}
	return nil
}

func (p *Profile) offLocked() error {
	err := p.LEDs.Reset()
	p.blinker.Cancel()
	p.toggle = false
	p.blinking = [2]bool{}
	p.defEnabled = false
	return err
}

func (p *Profile) blink() {
	p.lock.Lock()
	defer p.lock.Unlock()
	if !p.blinking[Left] && !p.blinking[Right] {
		return
	}
	p.toggle = !p.toggle
	brightness := BrightnessDefault
	if p.toggle {
		brightness = BrightnessBlinker
	}
	for side, leds := range blinkerLEDs {
		if !p.blinking[side] {
			continue
		}
		for _, led := range leds {
			if err := p.LEDs.SetLED(led, brightness); err != nil {
				glog.Errorf("blinker: set led %d: %v", led, err)
			}
		}
	}
	p.blinker.Reschedule(p.BlinkerPeriod)
}
