// Package env provides the common configuration of tinyrc binaries.
package env

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"

	"github.com/robotalks/tinyrc/pkg/buffer"
	fx "github.com/robotalks/tinyrc/pkg/framework"
	"github.com/robotalks/tinyrc/pkg/link"
	"github.com/robotalks/tinyrc/pkg/link/mqtt"
	"github.com/robotalks/tinyrc/pkg/link/stream"
	"github.com/robotalks/tinyrc/pkg/link/websocket"
	"github.com/robotalks/tinyrc/pkg/queue"
	"github.com/robotalks/tinyrc/pkg/serial"
	"github.com/robotalks/tinyrc/pkg/uart"
)

// Config provides common options to setup a vehicle or an operator.
type Config struct {
	Ref         link.Ref
	Description string

	// SerialDevice is the wired console, e.g. /dev/ttyUSB0.
	SerialDevice string
	Baud         int

	// LinkURL specifies the wireless link, empty for none.
	// e.g. mqtt://host:port/topic-prefix, tcp://host:port, ws://host/path
	LinkURL string

	// BufferSize is the capacity of every buffer, one byte is reserved.
	BufferSize int
	// PoolLimit bounds outstanding buffers, 0 is unlimited.
	PoolLimit int
	// QueueSize is the capacity of each queue.
	QueueSize  int
	RetryDelay time.Duration
	// ForwardWired relays serial lines to the wireless link.
	ForwardWired bool
}

// Link is a wireless link driven by its Run.
type Link interface {
	link.Link
	fx.Runnable
}

const idAppKey = "tinyrc"

var defaultConfig = Config{
	Ref:        link.Ref{Type: "tinyrc"},
	Baud:       serial.DefaultBaud,
	LinkURL:    "mqtt://localhost:1883/tinyrc/",
	BufferSize: buffer.DefaultCapacity,
	QueueSize:  queue.DefaultCapacity,
	RetryDelay: uart.DefaultRetryDelay,
}

func init() {
	if val := os.Getenv("TINYRC_SERIAL"); val != "" {
		defaultConfig.SerialDevice = val
	}
	if val := os.Getenv("TINYRC_BAUD"); val != "" {
		if baud, err := strconv.Atoi(val); err == nil {
			defaultConfig.Baud = baud
		}
	}
	if val, ok := os.LookupEnv("TINYRC_LINK_URL"); ok {
		defaultConfig.LinkURL = val
	}
	if val := os.Getenv("TINYRC_TYPE"); val != "" {
		defaultConfig.Ref.Type = val
	}
	if val := os.Getenv("TINYRC_ID"); val != "" {
		defaultConfig.Ref.ID = val
	} else {
		defaultConfig.Ref.ID = MachineID()
	}
}

// MachineID retrieves the ID identifying the machine, hashed with the
// application key. It's empty if the platform doesn't provide one.
func MachineID() string {
	id, err := machineid.ProtectedID(idAppKey)
	if err != nil {
		glog.Warningf("machine id unavailable: %v", err)
		return ""
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Ref.Type, "type", defaultConfig.Ref.Type, "Vehicle type")
	flag.StringVar(&defaultConfig.Ref.ID, "id", defaultConfig.Ref.ID, "Vehicle ID")
	flag.StringVar(&defaultConfig.Description, "desc", defaultConfig.Description, "Vehicle description")
	flag.StringVar(&defaultConfig.SerialDevice, "serial", defaultConfig.SerialDevice, "Serial console device")
	flag.IntVar(&defaultConfig.Baud, "baud", defaultConfig.Baud, "Serial baud rate")
	flag.StringVar(&defaultConfig.LinkURL, "link", defaultConfig.LinkURL, "Wireless link URL, empty to disable")
	flag.IntVar(&defaultConfig.BufferSize, "buf-size", defaultConfig.BufferSize, "Buffer capacity in bytes")
	flag.IntVar(&defaultConfig.PoolLimit, "buf-limit", defaultConfig.PoolLimit, "Max outstanding buffers, 0 for unlimited")
	flag.IntVar(&defaultConfig.QueueSize, "queue-size", defaultConfig.QueueSize, "Queue capacity")
	flag.DurationVar(&defaultConfig.RetryDelay, "retry", defaultConfig.RetryDelay, "Receive buffer retry delay")
	flag.BoolVar(&defaultConfig.ForwardWired, "forward", defaultConfig.ForwardWired, "Forward serial lines to the wireless link")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewPool creates the buffer pool.
func (c *Config) NewPool() *buffer.Pool {
	return buffer.NewPool(c.BufferSize, c.PoolLimit)
}

// NewQueue creates a queue with the configured capacity.
func (c *Config) NewQueue() *queue.Queue {
	return queue.New(c.QueueSize)
}

// OpenSerial opens the serial console.
func (c *Config) OpenSerial() (serial.Port, error) {
	conf := serial.DefaultConfig(c.SerialDevice)
	if c.Baud > 0 {
		conf.Baud = c.Baud
	}
	return serial.Open(conf)
}

// NewLink creates the wireless link selected by the scheme of LinkURL.
// It returns nil without error if LinkURL is empty.
func (c *Config) NewLink(meta link.Meta) (Link, error) {
	if c.LinkURL == "" {
		return nil, nil
	}
	parsedURL, err := url.Parse(c.LinkURL)
	if err != nil {
		return nil, fmt.Errorf("invalid link URL: %w", err)
	}
	if meta.Description == "" {
		meta.Description = c.Description
	}
	switch parsedURL.Scheme {
	case "mqtt", "mqtts":
		if !c.Ref.IsValid() {
			return nil, fmt.Errorf("vehicle type and id must be specified")
		}
		l, err := mqtt.NewLink(c.LinkURL, c.Ref, meta)
		if err != nil {
			return nil, err
		}
		return l, nil
	case "tcp":
		return pipeLink(stream.Dial(parsedURL.Host))
	case "ws", "wss":
		return pipeLink(websocket.Dial(c.LinkURL))
	default:
		return nil, fmt.Errorf("unknown link URL scheme: %q", parsedURL.Scheme)
	}
}

func pipeLink(p *link.Pipe, err error) (Link, error) {
	if err != nil {
		return nil, err
	}
	return p, nil
}

// MustNewLink creates the wireless link and fails on error.
func (c *Config) MustNewLink(meta link.Meta) Link {
	l, err := c.NewLink(meta)
	if err != nil {
		glog.Fatalf("create link %q: %v", c.LinkURL, err)
	}
	return l
}
