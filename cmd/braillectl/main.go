// braillectl is the control CLI for brailled.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"brailled/internal/config"
	"brailled/internal/ipc"
)

var socketPath = pflag.String("socket", "", "path to brailled control socket")

func main() {
	pflag.Parse()

	if pflag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	client, err := dial()
	if err != nil {
		fmt.Fprintf(os.Stderr, "braillectl: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	cmd := pflag.Arg(0)
	switch cmd {
	case "status":
		err = cmdStatus(client)
	case "dot":
		err = cmdDot(client, pflag.Args()[1:])
	case "chord":
		err = cmdChord(client, pflag.Args()[1:])
	case "type":
		err = cmdType(client, pflag.Args()[1:])
	case "toggle-mode":
		err = cmdToggleMode(client)
	case "set-mode":
		err = cmdSetMode(client, pflag.Args()[1:])
	case "toggle-overlay":
		err = cmdToggleOverlay(client)
	case "overlay":
		err = cmdOverlay(client, pflag.Args()[1:])
	case "set-timeout":
		err = cmdSetTimeout(client, pflag.Args()[1:])
	case "reset":
		err = client.Reset()
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "braillectl: unknown command %q\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "braillectl: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `braillectl - control utility for brailled

Usage: braillectl [options] <command> [args]

Commands:
  status                 Show daemon status
  dot <0-6>              Send one dot press (0 is space)
  chord <dots>           Send a complete chord, e.g. "136" or "0"
  type <chords...>       Send several chords, e.g. 6 1 0 1345
  toggle-mode            Cycle grade1 / grade2 / kana / nemeth
  set-mode <mode>        Select a mode by name
  toggle-overlay         Flip overlay tracking
  overlay <line>         Print one overlay line as Unicode braille
  set-timeout <ms>       Change the chord quiescence timeout
  reset                  Restore the engine to its initial state
  help                   Show this help

Options:
  --socket <path>        Control socket (default: from environment/config)`)
}

func dial() (*ipc.Client, error) {
	path := *socketPath
	if path == "" {
		path = os.Getenv("BRAILLED_SOCKET")
	}
	if path == "" {
		path = config.Default().IPC.SocketPath
	}
	return ipc.Dial(path)
}

func cmdStatus(c *ipc.Client) error {
	status, err := c.Status()
	if err != nil {
		return err
	}
	fmt.Printf("mode:           %s\n", status.Mode)
	fmt.Printf("chord timeout:  %d ms\n", status.ChordTimeoutMs)
	fmt.Printf("overlay:        %v\n", status.OverlayEnabled)
	fmt.Printf("emitted:        %d\n", status.Emitted)
	fmt.Printf("emit failures:  %d\n", status.EmitFailed)
	fmt.Printf("discarded:      %d profile entries\n", status.Discarded)
	if len(status.TrackedLines) > 0 {
		fmt.Printf("tracked lines:  %v\n", status.TrackedLines)
	}
	return nil
}

func cmdDot(c *ipc.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: braillectl dot <0-6>")
	}
	dot, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("bad dot %q", args[0])
	}
	return c.Dot(dot)
}

func cmdChord(c *ipc.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: braillectl chord <dots>")
	}
	dots, err := parseChord(args[0])
	if err != nil {
		return err
	}
	return c.Chord(dots)
}

func cmdType(c *ipc.Client, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: braillectl type <chords...>")
	}
	for _, arg := range args {
		dots, err := parseChord(arg)
		if err != nil {
			return err
		}
		if err := c.Chord(dots); err != nil {
			return err
		}
	}
	return nil
}

// parseChord reads a chord written as concatenated dot digits, e.g.
// "136"; "0" is the space chord.
func parseChord(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty chord")
	}
	dots := make([]int, 0, len(s))
	for _, r := range s {
		if r < '0' || r > '6' {
			return nil, fmt.Errorf("bad chord %q: dots are digits 0-6", s)
		}
		dots = append(dots, int(r-'0'))
	}
	return dots, nil
}

func cmdToggleMode(c *ipc.Client) error {
	mode, err := c.ToggleMode()
	if err != nil {
		return err
	}
	fmt.Println(mode)
	return nil
}

func cmdSetMode(c *ipc.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: braillectl set-mode <grade1|grade2|kana|nemeth>")
	}
	mode, err := c.SetMode(args[0])
	if err != nil {
		return err
	}
	fmt.Println(mode)
	return nil
}

func cmdToggleOverlay(c *ipc.Client) error {
	enabled, err := c.ToggleOverlay()
	if err != nil {
		return err
	}
	fmt.Println(map[bool]string{true: "enabled", false: "disabled"}[enabled])
	return nil
}

func cmdOverlay(c *ipc.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: braillectl overlay <line>")
	}
	line, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("bad line %q", args[0])
	}
	braille, err := c.OverlayLine(line)
	if err != nil {
		return err
	}
	fmt.Println(braille)
	return nil
}

func cmdSetTimeout(c *ipc.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: braillectl set-timeout <ms>")
	}
	ms, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("bad timeout %q", args[0])
	}
	return c.SetChordTimeout(ms)
}
