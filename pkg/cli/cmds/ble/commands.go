// Package ble controls the presence announcement of the wireless link.
package ble

import (
	"fmt"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/tinyrc/pkg/cli/sh"
)

// AdvertiseCmd starts or stops advertising.
var AdvertiseCmd = ishell.Cmd{
	Name: "adv",
	Help: "start|stop",
	Func: sh.Arity(1, func(c *ishell.Context) {
		adv := sh.ShellFrom(c).Advertiser
		if adv == nil {
			c.Err(fmt.Errorf("advertising %w", sh.ErrUnavailable))
			return
		}
		var err error
		switch c.Args[0] {
		case "start":
			err = adv.StartAdvertising()
		case "stop":
			err = adv.StopAdvertising()
		default:
			err = fmt.Errorf("%w: %q", sh.ErrArgs, c.Args[0])
		}
		if err != nil {
			c.Err(err)
		}
	}),
}

func init() {
	sh.AddCmds(sh.Group("ble", "wireless link commands", &AdvertiseCmd))
}
