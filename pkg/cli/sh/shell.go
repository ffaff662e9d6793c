package sh

import (
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/abiosoft/ishell"
	"github.com/abiosoft/readline"
	"github.com/google/shlex"

	"github.com/robotalks/tinyrc/pkg/link"
	"github.com/robotalks/tinyrc/pkg/vehicle"
)

// Notifier receives the output of commands.
type Notifier interface {
	Notify(msg string)
}

// Errors of command execution.
var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrArgs           = errors.New("invalid arguments")
	ErrUnavailable    = errors.New("not available")
)

// Shell executes command lines against a vehicle.
type Shell struct {
	Shell      *ishell.Shell
	Vehicle    *vehicle.Profile
	Advertiser link.Advertiser
	// Notifier gets a copy of all output when set.
	Notifier Notifier

	lock sync.Mutex
}

const (
	shellKey = "$shell"
	prompt   = "tinyrc> "
)

var commands []*ishell.Cmd

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// Commands lists the names of the registered commands.
func Commands() []string {
	names := make([]string, 0, len(commands))
	for _, cmd := range commands {
		names = append(names, cmd.Name)
	}
	sort.Strings(names)
	return names
}

// New creates a shell with output written to out.
func New(v *vehicle.Profile, out io.Writer) *Shell {
	s := &Shell{Vehicle: v}
	if out == nil {
		out = os.Stdout
	}
	// lines come from Execute, never from the terminal
	s.Shell = ishell.NewWithConfig(&readline.Config{
		Prompt: prompt,
		Stdin:  ioutil.NopCloser(strings.NewReader("")),
		Stdout: &mirrorWriter{shell: s, out: out},
	})
	s.Shell.Set(shellKey, s)
	s.Shell.NotFound(func(c *ishell.Context) {
		c.Err(fmt.Errorf("%w: %s", ErrUnknownCommand, strings.Join(c.Args, " ")))
	})
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Execute implements bridge.Executor.
// Arguments are split the way a POSIX shell does.
func (s *Shell) Execute(line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArgs, err)
	}
	if len(args) == 0 {
		return nil
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.Shell.Process(args...)
}

type mirrorWriter struct {
	shell *Shell
	out   io.Writer
}

func (w *mirrorWriter) Write(p []byte) (int, error) {
	if n := w.shell.Notifier; n != nil && len(p) > 0 {
		n.Notify(string(p))
	}
	return w.out.Write(p)
}

// Group creates a command with sub commands.
// Invoking it without a known sub command fails.
func Group(name, help string, subs ...*ishell.Cmd) *ishell.Cmd {
	cmd := &ishell.Cmd{
		Name: name,
		Help: help,
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(fmt.Errorf("%w: %s requires a sub command", ErrArgs, name))
				return
			}
			c.Err(fmt.Errorf("%w: %s %s", ErrUnknownCommand, name, c.Args[0]))
		},
	}
	for _, sub := range subs {
		cmd.AddCmd(sub)
	}
	return cmd
}

// Arity wraps fn to fail unless exactly n arguments are given.
func Arity(n int, fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if len(c.Args) != n {
			c.Err(fmt.Errorf("%w: expect %d, got %d", ErrArgs, n, len(c.Args)))
			return
		}
		fn(c)
	}
}

// IntArg parses argument i as an integer.
func IntArg(c *ishell.Context, i int) (int, error) {
	v, err := strconv.Atoi(c.Args[i])
	if err != nil {
		return 0, fmt.Errorf("%w: arg[%d] %q", ErrArgs, i, c.Args[i])
	}
	return v, nil
}

// FloatArg parses argument i as a float.
func FloatArg(c *ishell.Context, i int) (float64, error) {
	v, err := strconv.ParseFloat(c.Args[i], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: arg[%d] %q", ErrArgs, i, c.Args[i])
	}
	return v, nil
}

// VehicleFrom gets the vehicle of the shell, failing the command when absent.
func VehicleFrom(c *ishell.Context) *vehicle.Profile {
	v := ShellFrom(c).Vehicle
	if v == nil {
		c.Err(fmt.Errorf("vehicle %w", ErrUnavailable))
	}
	return v
}
