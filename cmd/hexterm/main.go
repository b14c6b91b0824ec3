// Command hexterm is an interactive terminal for observing and driving
// binary serial links: one endpoint (DCE) or two (DCE+DTE, MITM), with
// operator byte injection via mixed hex/quoted-text commands.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hexterm/hexterm/internal/codec"
	"github.com/hexterm/hexterm/internal/config"
	"github.com/hexterm/hexterm/internal/core"
	"github.com/hexterm/hexterm/internal/localio"
	"github.com/hexterm/hexterm/internal/serialio"
)

var processStart = time.Now()

// flagValues mirrors the CLI options table in spec §6 before they are
// resolved into a config.Config. Each aliased flag (e.g. -b/--baud/
// --speed) is bound to the same field from multiple pflag registrations.
type flagValues struct {
	baud         int
	flowControl  string
	encoding     string
	framing      string
	input        string
	output       string
	mitm         string
	noForwarding bool
	tsOn         bool
	tsOff        bool
}

func main() {
	os.Exit(run())
}

// run builds the CLI, wires the pipeline, and returns the process exit
// code. Cleanup happens inside runHexterm via defers, so this stays a
// thin wrapper around cobra.
func run() int {
	var fv flagValues

	root := &cobra.Command{
		Use:           "hexterm PORT",
		Short:         "Raw hexadecimal terminal for monitoring binary serial interfaces",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
	}

	flags := root.Flags()
	flags.SortFlags = false

	flags.IntVarP(&fv.baud, "baud", "b", 9600, "baud rate")
	flags.IntVar(&fv.baud, "speed", 9600, "alias for --baud")

	flags.StringVarP(&fv.flowControl, "flow-control", "c", "None", "flow control method")
	flags.StringVar(&fv.flowControl, "control", "None", "alias for --flow-control")

	flags.StringVarP(&fv.encoding, "encoding", "e", codec.DefaultName, "character encoding for sidebar and quoted text")

	flags.StringVarP(&fv.framing, "framing", "f", "8N1", "framing as <databits><parity><stopbits>")

	flags.StringVarP(&fv.input, "input", "i", "-", "command source, - for stdin")
	flags.StringVarP(&fv.output, "output", "o", "-", "hexdump/diagnostic sink (append), - for stdout")

	flags.StringVarP(&fv.mitm, "mitm", "m", "", "enable MITM against this second port")
	flags.StringVar(&fv.mitm, "monitor", "", "alias for --mitm")

	flags.BoolVar(&fv.noForwarding, "no-forwarding", false, "disable byte forwarding in MITM mode")
	flags.BoolVar(&fv.noForwarding, "nf", false, "alias for --no-forwarding")

	flags.BoolVar(&fv.tsOn, "ts", false, "force timestamp prefix on")
	flags.BoolVar(&fv.tsOff, "no-ts", false, "force timestamp prefix off")

	exitCode := 1
	root.RunE = func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		exitCode = runHexterm(args[0], fv)
		return nil
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return exitCode
}

// runHexterm builds the configuration, acquires resources in the scoped
// order spec §4.8 prescribes (rolling back on any failure), runs the
// Supervisor, and tears everything down in reverse order. It returns the
// process exit code.
func runHexterm(port string, fv flagValues) int {
	cfg, err := buildConfig(port, fv)
	if err != nil {
		log.Printf("configuration error: %v", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("configuration error: %v", err)
		return 1
	}

	enc, err := codec.Lookup(cfg.Encoding)
	if err != nil {
		log.Printf("configuration error: %v", err)
		return 1
	}

	enableTerminalStatus()

	// Step 2: acquire DCE.
	dce, err := serialio.Open(cfg.Port, cfg.Baud, cfg.Framing, cfg.FlowControl)
	if err != nil {
		log.Printf("%v", err)
		return 1
	}
	defer dce.Close()

	// Step 3: acquire DTE, if MITM.
	var dte *serialio.Endpoint
	if cfg.Mitm() {
		dte, err = serialio.Open(cfg.MitmPort, cfg.Baud, cfg.Framing, cfg.FlowControl)
		if err != nil {
			log.Printf("%v", err)
			return 1
		}
		defer dte.Close()
	}

	// Step 4: acquire local input.
	in, inCloser, err := localio.OpenInput(cfg.Input)
	if err != nil {
		log.Printf("%v", err)
		return 1
	}
	defer inCloser.Close()

	// Step 5: acquire local output.
	out, outCloser, err := localio.OpenOutput(cfg.Output)
	if err != nil {
		log.Printf("%v", err)
		return 1
	}
	defer outCloser.Close()

	lio := localio.New(in, inCloser, out, outCloser)
	defer lio.Flush()

	printBanner(lio, cfg, enc)

	endpoints := core.Endpoints{Dce: dce}
	if dte != nil {
		endpoints.Dte = dte
	}

	sup := core.New(endpoints, lio, core.Params{
		Baud:        cfg.Baud,
		Encoding:    enc,
		Forwarding:  cfg.ForwardingEnabled(),
		Timestamps:  cfg.TimestampsEnabled(),
		ProcessedAt: processStart,
	})

	// Wire OS signals to the same shutdown latch a typed "quit" trips,
	// matching the teacher's signal.Notify(sigChan, SIGINT, SIGTERM).
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if _, ok := <-sigCh; ok {
			sup.Shutdown().Set()
		}
	}()
	defer signal.Stop(sigCh)

	sup.Run()

	fmt.Fprintln(os.Stderr, "Exiting")
	return 0
}

func buildConfig(port string, fv flagValues) (config.Config, error) {
	framing, err := config.ParseFraming(fv.framing)
	if err != nil {
		return config.Config{}, err
	}
	flow, err := config.ParseFlowControl(fv.flowControl)
	if err != nil {
		return config.Config{}, err
	}

	forwarding := config.Unset
	if fv.noForwarding {
		forwarding = config.Off
	}

	timestamps := config.Unset
	switch {
	case fv.tsOn:
		timestamps = config.On
	case fv.tsOff:
		timestamps = config.Off
	}

	return config.Config{
		Port:        port,
		MitmPort:    fv.mitm,
		Baud:        fv.baud,
		Framing:     framing,
		FlowControl: flow,
		Encoding:    fv.encoding,
		Input:       fv.input,
		Output:      fv.output,
		Forwarding:  forwarding,
		Timestamps:  timestamps,
	}, nil
}

func printBanner(lio *localio.IO, cfg config.Config, enc *codec.Codec) {
	lio.WriteLine(fmt.Sprintf("hexterm: port=%s baud=%d framing=%s xonxoff=%v rtscts=%v dsrdtr=%v encoding=%s mitm=%s forwarding=%v timestamps=%v msg_timeout=%.3fs",
		cfg.Port, cfg.Baud, framingString(cfg.Framing), cfg.FlowControl.XonXoff, cfg.FlowControl.RtsCts, cfg.FlowControl.DsrDtr,
		enc.Name(), mitmString(cfg), cfg.ForwardingEnabled(), cfg.TimestampsEnabled(),
		cfg.MsgTimeoutSeconds()))

	if isInteractive(cfg.Input) {
		lio.WriteLine("Type 'quit' to exit")
	}
}

func framingString(f config.Framing) string {
	stop := "1"
	switch f.Stop {
	case config.StopBits15:
		stop = "1.5"
	case config.StopBits2:
		stop = "2"
	}
	return fmt.Sprintf("%d%c%s", f.DataBits, byte(f.Parity), stop)
}

func mitmString(cfg config.Config) string {
	if !cfg.Mitm() {
		return "none"
	}
	return cfg.MitmPort
}

// isInteractive reports whether the configured input source is a
// terminal, suppressing the quit hint for scripted/piped input.
func isInteractive(input string) bool {
	if input != "" && input != "-" {
		return false
	}
	return term.IsTerminal(int(os.Stdin.Fd()))
}
