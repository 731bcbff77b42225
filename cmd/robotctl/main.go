// cmd/robotctl is a command line client that talks to the controller
// directly, without the HTTP service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"robot-service/internal/config"
	"robot-service/internal/protocol"
	"robot-service/internal/robot"
	"robot-service/internal/service"
	"robot-service/internal/utils"
)

const historyFile = ".robotctl_history"

func main() {
	cfgFile := flag.String("config", "", "Path to config file (default: ./config.yaml if present)")
	transport := flag.String("transport", "", "Transport: serial, tcp, usb or simulator")
	port := flag.String("port", "", "Serial port, e.g. /dev/ttyACM0")
	baud := flag.Int("baud", 0, "Serial baud rate")
	host := flag.String("host", "", "TCP bridge host")
	tcpPort := flag.Int("tcp-port", 0, "TCP bridge port")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: robotctl [flags] [command [args...]]\n\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nWithout a command an interactive shell starts. Commands:\n")
		NewShell(nil, os.Stderr).Help()
	}
	flag.Parse()

	v := viper.New()
	if *cfgFile != "" {
		v.SetConfigFile(*cfgFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	overrides := map[string]interface{}{
		"logging.output": "stderr",
		"logging.format": "console",
		"logging.level":  "warn",
	}
	if *verbose {
		overrides["logging.level"] = "debug"
	}
	if *transport != "" {
		overrides["transport.type"] = *transport
	}
	if *port != "" {
		overrides["transport.serial.port"] = *port
	}
	if *baud > 0 {
		overrides["transport.serial.baud_rate"] = *baud
	}
	if *host != "" {
		overrides["transport.tcp.host"] = *host
	}
	if *tcpPort > 0 {
		overrides["transport.tcp.port"] = *tcpPort
	}
	for key, value := range overrides {
		v.Set(key, value)
	}

	cfg, err := config.LoadWith(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer utils.CloseLogger(logger)

	factory, err := protocol.NewTransportFactory(&cfg.Transport, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "transport error: %v\n", err)
		os.Exit(1)
	}

	router := robot.NewRouter(factory, service.RouterOptions(cfg.Robot), logger)
	defer func() {
		if router.IsConnected() {
			router.Disconnect()
		}
	}()

	shell := NewShell(router, os.Stdout)

	if flag.NArg() > 0 {
		if err := runLine(shell, flag.Arg(0), flag.Args()[1:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	interactive(shell, logger)
}

// runLine executes one command, connecting first when the command needs the
// link. Ctrl-C cancels the command, not the shell.
func runLine(shell *Shell, name string, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if cmd, ok := cliCommands[strings.ToLower(name)]; ok && !cmd.Offline && !shell.router.IsConnected() {
		if err := shell.router.Connect(ctx); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
	}
	return shell.Run(ctx, name, args)
}

func interactive(shell *Shell, logger *zap.Logger) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(input string) (c []string) {
		for _, name := range commandNames() {
			if strings.HasPrefix(name, strings.ToLower(input)) {
				c = append(c, name)
			}
		}
		return
	})

	history := historyPath()
	if f, err := os.Open(history); err == nil {
		line.ReadHistory(f)
		f.Close()
	}

	fmt.Println("robotctl: type \"help\" for commands, Ctrl-D to quit.")
	for {
		input, err := line.Prompt("robot> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			fmt.Println()
			break
		}
		if err != nil {
			logger.Error("Prompt failed", zap.Error(err))
			break
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if input == "quit" || input == "exit" {
			break
		}

		tokens := strings.Fields(input)
		if err := runLine(shell, tokens[0], tokens[1:]); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}

	saveHistory(line, history)
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return historyFile
	}
	return filepath.Join(home, historyFile)
}

func saveHistory(line *liner.State, path string) {
	if f, err := os.Create(path); err == nil {
		line.WriteHistory(f)
		f.Close()
	}
}
