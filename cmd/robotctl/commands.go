package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"robot-service/internal/protocol"
	"robot-service/internal/robot"
)

var errUsage = errors.New("usage")

// CLICommand is one shell verb
type CLICommand struct {
	Name        string
	Usage       string
	Description string
	MinArgs     int
	MaxArgs     int
	Offline     bool // runs without a controller link
	Handler     func(ctx context.Context, s *Shell, args []string) error
}

// Shell executes CLI commands against a router and prints to out
type Shell struct {
	router *robot.Router
	out    io.Writer
}

// NewShell creates a shell over router
func NewShell(router *robot.Router, out io.Writer) *Shell {
	return &Shell{router: router, out: out}
}

func (s *Shell) printf(format string, args ...interface{}) {
	fmt.Fprintf(s.out, format, args...)
}

// Run executes one command line already split into name and args
func (s *Shell) Run(ctx context.Context, name string, args []string) error {
	cmd, ok := cliCommands[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("unknown command %q, try \"help\"", name)
	}
	if len(args) < cmd.MinArgs || len(args) > cmd.MaxArgs {
		return fmt.Errorf("%w: %s", errUsage, cmd.Usage)
	}
	return cmd.Handler(ctx, s, args)
}

// Help prints the command table
func (s *Shell) Help() {
	for _, name := range commandNames() {
		c := cliCommands[name]
		s.printf("  %-28s %s\n", c.Usage, c.Description)
	}
}

func commandNames() []string {
	names := make([]string, 0, len(cliCommands))
	for name := range cliCommands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func parseMotorID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid motor id %q", arg)
	}
	return id, nil
}

func parseDecimal(arg string) (float64, error) {
	d, err := decimal.NewFromString(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", arg)
	}
	return d.InexactFloat64(), nil
}

func formatDegrees(deg float64) string {
	return decimal.NewFromFloat(deg).StringFixed(2)
}

func (s *Shell) printSnapshot(m robot.MotorSnapshot) {
	s.printf("motor %d:", m.MotorID)
	if m.Position != nil {
		s.printf(" position=%d (%s°)", m.Position.Raw, formatDegrees(m.Position.Degrees))
	}
	if m.Velocity != nil {
		s.printf(" velocity=%d", *m.Velocity)
	}
	if m.Temperature != nil {
		s.printf(" temperature=%d", *m.Temperature)
	}
	s.printf("\n")
}

var cliCommands = map[string]CLICommand{}

func init() {
	for _, c := range []CLICommand{
		{
			Name: "help", Usage: "help", Description: "Show this table", Offline: true,
			Handler: func(ctx context.Context, s *Shell, args []string) error {
				s.Help()
				return nil
			},
		},
		{
			Name: "connect", Usage: "connect", Description: "Open the controller link", Offline: true,
			Handler: func(ctx context.Context, s *Shell, args []string) error {
				if err := s.router.Connect(ctx); err != nil {
					return err
				}
				s.printf("connected\n")
				return nil
			},
		},
		{
			Name: "disconnect", Usage: "disconnect", Description: "Close the controller link", Offline: true,
			Handler: func(ctx context.Context, s *Shell, args []string) error {
				if err := s.router.Disconnect(); err != nil {
					return err
				}
				s.printf("disconnected\n")
				return nil
			},
		},
		{
			Name: "status", Usage: "status", Description: "Show link status", Offline: true,
			Handler: func(ctx context.Context, s *Shell, args []string) error {
				st := s.router.Status()
				s.printf("connected=%t ready=%t pending=%d", st.IsConnected, st.Ready, st.PendingResponseCount)
				if st.Transport != "" {
					s.printf(" transport=%s", st.Transport)
				}
				s.printf("\n")
				return nil
			},
		},
		{
			Name: "ports", Usage: "ports", Description: "List host serial ports", Offline: true,
			Handler: func(ctx context.Context, s *Shell, args []string) error {
				ports, err := protocol.ListPorts()
				if err != nil {
					return err
				}
				if len(ports) == 0 {
					s.printf("no serial ports found\n")
				}
				for _, p := range ports {
					switch {
					case p.Kind != "":
						s.printf("%s usb %s:%s %s %s (%s)\n", p.Name, p.VendorID, p.ProductID, p.Manufacturer, p.Model, p.Kind)
					case p.IsUSB:
						s.printf("%s usb %s:%s %s\n", p.Name, p.VendorID, p.ProductID, p.Product)
					default:
						s.printf("%s\n", p.Name)
					}
				}
				return nil
			},
		},
		{
			Name: "ready", Usage: "ready [timeout]", Description: "Wait for the READY banner", MaxArgs: 1,
			Handler: func(ctx context.Context, s *Shell, args []string) error {
				timeout := s.router.Options().ReadyTimeout
				if len(args) == 1 {
					d, err := time.ParseDuration(args[0])
					if err != nil {
						return fmt.Errorf("invalid timeout %q", args[0])
					}
					timeout = d
				}
				if err := s.router.WaitReady(ctx, timeout); err != nil {
					return err
				}
				s.printf("ready\n")
				return nil
			},
		},
		{
			Name: "ping", Usage: "ping <id>", Description: "Check whether a motor answers", MinArgs: 1, MaxArgs: 1,
			Handler: func(ctx context.Context, s *Shell, args []string) error {
				id, err := parseMotorID(args[0])
				if err != nil {
					return err
				}
				online, err := s.router.Ping(ctx, id)
				if err != nil {
					return err
				}
				if online {
					s.printf("motor %d online\n", id)
				} else {
					s.printf("motor %d offline\n", id)
				}
				return nil
			},
		},
		{
			Name: "torque", Usage: "torque <id> on|off", Description: "Enable or disable torque", MinArgs: 2, MaxArgs: 2,
			Handler: func(ctx context.Context, s *Shell, args []string) error {
				id, err := parseMotorID(args[0])
				if err != nil {
					return err
				}
				var enable bool
				switch strings.ToLower(args[1]) {
				case "on", "1", "true":
					enable = true
				case "off", "0", "false":
				default:
					return fmt.Errorf("%w: torque <id> on|off", errUsage)
				}
				if err := s.router.EnableTorque(ctx, id, enable); err != nil {
					return err
				}
				s.printf("ok\n")
				return nil
			},
		},
		{
			Name: "pos", Usage: "pos <id> [degrees]", Description: "Read or set motor position", MinArgs: 1, MaxArgs: 2,
			Handler: func(ctx context.Context, s *Shell, args []string) error {
				id, err := parseMotorID(args[0])
				if err != nil {
					return err
				}
				if len(args) == 2 {
					deg, err := parseDecimal(args[1])
					if err != nil {
						return err
					}
					if err := s.router.SetPosition(ctx, id, deg); err != nil {
						return err
					}
					s.printf("ok\n")
					return nil
				}
				p, err := s.router.GetPosition(ctx, id)
				if err != nil {
					return err
				}
				s.printf("motor %d position=%d (%s°)\n", p.MotorID, p.Raw, formatDegrees(p.Degrees))
				return nil
			},
		},
		{
			Name: "vel", Usage: "vel <id> [deg/s]", Description: "Read or set motor velocity", MinArgs: 1, MaxArgs: 2,
			Handler: func(ctx context.Context, s *Shell, args []string) error {
				id, err := parseMotorID(args[0])
				if err != nil {
					return err
				}
				if len(args) == 2 {
					dps, err := parseDecimal(args[1])
					if err != nil {
						return err
					}
					if err := s.router.SetVelocity(ctx, id, dps); err != nil {
						return err
					}
					s.printf("ok\n")
					return nil
				}
				v, err := s.router.GetVelocity(ctx, id)
				if err != nil {
					return err
				}
				s.printf("motor %d velocity=%d\n", v.MotorID, v.Raw)
				return nil
			},
		},
		{
			Name: "mode", Usage: "mode <id> <mode>", Description: "Set operating mode", MinArgs: 2, MaxArgs: 2,
			Handler: func(ctx context.Context, s *Shell, args []string) error {
				id, err := parseMotorID(args[0])
				if err != nil {
					return err
				}
				mode, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid mode %q", args[1])
				}
				if err := s.router.SetMode(ctx, id, mode); err != nil {
					return err
				}
				s.printf("ok\n")
				return nil
			},
		},
		{
			Name: "temp", Usage: "temp <id>", Description: "Read motor temperature", MinArgs: 1, MaxArgs: 1,
			Handler: func(ctx context.Context, s *Shell, args []string) error {
				id, err := parseMotorID(args[0])
				if err != nil {
					return err
				}
				t, err := s.router.GetTemperature(ctx, id)
				if err != nil {
					return err
				}
				s.printf("motor %d temperature=%d\n", t.MotorID, t.Raw)
				return nil
			},
		},
		{
			Name: "query", Usage: "query <id>", Description: "Read position, velocity and temperature", MinArgs: 1, MaxArgs: 1,
			Handler: func(ctx context.Context, s *Shell, args []string) error {
				id, err := parseMotorID(args[0])
				if err != nil {
					return err
				}
				m, err := s.router.QueryMotor(ctx, id)
				if err != nil {
					return err
				}
				s.printSnapshot(m)
				return nil
			},
		},
		{
			Name: "scan", Usage: "scan <start> <end>", Description: "Find motors in an id range", MinArgs: 2, MaxArgs: 2,
			Handler: func(ctx context.Context, s *Shell, args []string) error {
				start, err := parseMotorID(args[0])
				if err != nil {
					return err
				}
				end, err := parseMotorID(args[1])
				if err != nil {
					return err
				}
				found, err := s.router.ScanMotors(ctx, start, end)
				if err != nil {
					return err
				}
				for _, m := range found {
					s.printSnapshot(m)
				}
				s.printf("%d motor(s) found\n", len(found))
				return nil
			},
		},
		{
			Name: "stop", Usage: "stop", Description: "Emergency stop all motors",
			Handler: func(ctx context.Context, s *Shell, args []string) error {
				if err := s.router.EmergencyStop(ctx); err != nil {
					return err
				}
				s.printf("stopped\n")
				return nil
			},
		},
		{
			Name: "send", Usage: "send <command>", Description: "Send a raw command, e.g. ENABLE_TORQUE:1;", MinArgs: 1, MaxArgs: 1,
			Handler: func(ctx context.Context, s *Shell, args []string) error {
				if err := s.router.SendCommand(ctx, args[0], 0); err != nil {
					return err
				}
				s.printf("ok\n")
				return nil
			},
		},
		{
			Name: "batch", Usage: "batch <command>...", Description: "Send raw commands in order", MinArgs: 1, MaxArgs: 100,
			Handler: func(ctx context.Context, s *Shell, args []string) error {
				for _, r := range s.router.BatchCommand(ctx, args) {
					if r.Success {
						s.printf("%-24s ok\n", r.Command)
					} else {
						s.printf("%-24s %v\n", r.Command, r.Error)
					}
				}
				return ctx.Err()
			},
		},
	} {
		cliCommands[c.Name] = c
	}
}
