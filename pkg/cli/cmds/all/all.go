// Package all registers all shell commands.
package all

import (
	// command providers
	_ "github.com/robotalks/tinyrc/pkg/cli/cmds/ble"
	_ "github.com/robotalks/tinyrc/pkg/cli/cmds/drivers"
	_ "github.com/robotalks/tinyrc/pkg/cli/cmds/tinyrc"
)
