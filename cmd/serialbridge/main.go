// Command serialbridge is a small interactive driver for the engine,
// exercising the four tool operations end to end without implementing the
// JSON-RPC wiring that would normally sit in front of it (that layer is
// out of scope; see spec.md §1).
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"serialbridge/config"
	"serialbridge/engine"
	"serialbridge/port"
	"serialbridge/tool"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "serialbridge",
		Short: "Protocol-agnostic serial-port bridge for tool-calling orchestrators",
	}
	root.AddCommand(newListPortsCmd(), newConnectCmd())
	return root
}

func newListPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-ports",
		Short: "List available serial ports",
		RunE: func(cmd *cobra.Command, args []string) error {
			infos, err := port.List()
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				fmt.Println("no serial ports found")
				return nil
			}
			for _, info := range infos {
				fmt.Printf("%-20s %-30s %s\n", info.Port, info.Description, info.HardwareID)
			}
			return nil
		},
	}
}

func newConnectCmd() *cobra.Command {
	var (
		device        string
		baud          int
		idleThreshold int
	)

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect to a device and start an interactive command loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, defaultBaud, err := config.Load()
			if err != nil {
				return err
			}
			if baud <= 0 {
				baud = defaultBaud
			}
			if idleThreshold > 0 {
				cfg.IdleThreshold = time.Duration(idleThreshold) * time.Millisecond
			}

			e := engine.New(cfg)
			b := tool.New(e)

			ctx := context.Background()
			if _, err := b.ConfigureConnection(ctx, tool.ActionOpen, device, baud); err != nil {
				return err
			}
			defer b.ConfigureConnection(ctx, tool.ActionClose, "", 0)

			fmt.Printf("Connected to %s @ %d baud. Type 'help' for commands, 'quit' to exit.\n", device, baud)
			return runREPL(ctx, b)
		},
	}

	cmd.Flags().StringVarP(&device, "device", "d", "", "serial device path (required)")
	cmd.Flags().IntVarP(&baud, "baud", "b", 0, "baud rate (0 = use configured default)")
	cmd.Flags().IntVar(&idleThreshold, "idle-threshold-ms", 0, "async idle threshold override, in milliseconds")
	cmd.MarkFlagRequired("device")

	return cmd
}

func runREPL(ctx context.Context, b *tool.Bridge) error {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields, err := shlex.Split(line)
		if err != nil || len(fields) == 0 {
			fmt.Fprintln(os.Stderr, "could not parse command line")
			continue
		}

		switch fields[0] {
		case "quit", "exit", "q":
			return nil
		case "help":
			printHelp()
		case "async":
			printAsync(b)
		case "send":
			if err := handleSend(ctx, b, fields[1:]); err != nil {
				fmt.Fprintln(os.Stderr, "Error:", err)
			}
		default:
			fmt.Printf("unknown command %q (type 'help')\n", fields[0])
		}
	}
}

func printHelp() {
	fmt.Println(`commands:
  send <utf8|hex> <policy:keyword|timeout|none|at_command> <timeout_ms> [stop_pattern] <payload...>
  async                 drain and print pending async messages
  help                  show this message
  quit                  exit`)
}

func printAsync(b *tool.Bridge) {
	res := b.ReadAsyncMessages()
	if len(res.Packets) == 0 {
		fmt.Println("(no pending async messages)")
	}
	for _, p := range res.Packets {
		fmt.Printf("[%s] hex=%v %s\n", p.Timestamp.Format("15:04:05.000"), p.IsHex, p.Text)
	}
	if res.Dropped > 0 {
		fmt.Printf("(%d async packets were dropped due to store overflow)\n", res.Dropped)
	}
}

func handleSend(ctx context.Context, b *tool.Bridge, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: send <utf8|hex> <policy> <timeout_ms> [stop_pattern] <payload...>")
	}
	enc := engine.Encoding(args[0])
	policy := engine.WaitPolicy(args[1])
	timeoutMs, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid timeout_ms: %w", err)
	}

	rest := args[3:]
	var stopPattern, payload string
	if policy == engine.PolicyKeyword {
		if len(rest) < 2 {
			return fmt.Errorf("keyword policy needs a stop_pattern and a payload")
		}
		stopPattern = rest[0]
		payload = strings.Join(rest[1:], " ")
	} else {
		payload = strings.Join(rest, " ")
	}

	id := uuid.NewString()[:8]
	fmt.Printf("[%s] sending %q (%s, %s, %dms)\n", id, payload, enc, policy, timeoutMs)

	res, err := b.SendData(ctx, payload, enc, policy, stopPattern, timeoutMs)
	if err != nil {
		return err
	}

	fmt.Printf("[%s] bytes_received=%d truncated=%v pending_async=%d\n", id, res.BytesReceived, res.Truncated, res.PendingAsyncCount)
	if res.MatchedStopPattern != nil {
		fmt.Printf("[%s] matched_stop_pattern=%v (%q)\n", id, *res.MatchedStopPattern, res.MatchedTerminator)
	}
	fmt.Printf("[%s] data: %s\n", id, res.DataText)
	return nil
}
