package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mubashir494/swp/internal/link"
	"github.com/mubashir494/swp/internal/profile"
	"github.com/mubashir494/swp/internal/swp"
	"github.com/mubashir494/swp/internal/telemetry"
)

type sendOptions struct {
	Addr           string
	InputFile      string
	ProfileFile    string
	SlowStart      bool
	FastRetransmit bool
	Threshold      float64
	CwndLog        string
}

func defaultSendOptions() *sendOptions {
	defaults := profile.Default()
	return &sendOptions{
		SlowStart:      defaults.SlowStart,
		FastRetransmit: defaults.FastRetransmit,
		Threshold:      defaults.Threshold,
	}
}

func newSendCmd() *cobra.Command {
	o := defaultSendOptions()

	cmd := &cobra.Command{
		Use:          "send",
		Short:        "sends a file (or stdin) reliably to a receiving endpoint",
		SilenceUsage: true,
		RunE:         o.run,
	}

	cmd.Flags().StringVarP(&o.Addr, "addr", "a", "127.0.0.1:9000", "address of the receiving endpoint")
	cmd.Flags().StringVarP(&o.InputFile, "in", "i", "", "file to send, stdin if omitted")
	cmd.Flags().StringVarP(&o.ProfileFile, "profile", "p", "", "profile file with endpoint settings")
	cmd.Flags().BoolVar(&o.SlowStart, "slow-start", o.SlowStart, "enable slow start")
	cmd.Flags().BoolVar(&o.FastRetransmit, "fast-retransmit", o.FastRetransmit, "enable fast retransmit on triple duplicate ACKs")
	cmd.Flags().Float64Var(&o.Threshold, "threshold", o.Threshold, "initial slow-start threshold in segments")
	cmd.Flags().StringVar(&o.CwndLog, "cwnd-log", "", "record congestion-window samples to this file")

	return cmd
}

func (o *sendOptions) run(cmd *cobra.Command, args []string) error {
	settings := profile.Default()
	if o.ProfileFile != "" {
		loaded, err := profile.Load(o.ProfileFile)
		if err != nil {
			return fmt.Errorf("could not load profile: %w", err)
		}
		settings = loaded
	}
	if cmd.Flags().Changed("slow-start") {
		settings.SlowStart = o.SlowStart
	}
	if cmd.Flags().Changed("fast-retransmit") {
		settings.FastRetransmit = o.FastRetransmit
	}
	if cmd.Flags().Changed("threshold") {
		settings.Threshold = o.Threshold
	}
	if o.CwndLog != "" {
		settings.CwndLog = o.CwndLog
	}

	data, err := o.readInput()
	if err != nil {
		return err
	}

	l, err := link.DialUDP(o.Addr, link.UDPOptions{
		ReadTimeout: settings.ReadTimeout,
		Transmit:    settings.TransmitDelay,
		Propagation: settings.PropagationDelay,
	})
	if err != nil {
		return fmt.Errorf("could not dial %s: %w", o.Addr, err)
	}

	var sink telemetry.Sink = telemetry.Nop{}
	if settings.CwndLog != "" {
		recorder, err := telemetry.NewRecorder(settings.CwndLog)
		if err != nil {
			return fmt.Errorf("could not open cwnd log: %w", err)
		}
		defer recorder.Close()
		sink = recorder
	}

	session := uuid.New()
	log.Printf("send session %s: %d bytes to %s\n", session, len(data), o.Addr)

	sender := swp.NewSender(l, swp.SenderOptions{
		Policy: swp.PolicyConfig{
			SlowStart:        settings.SlowStart,
			FastRetransmit:   settings.FastRetransmit,
			InitialThreshold: settings.Threshold,
		},
		BufferSize: settings.BufferSize,
		Telemetry:  sink,
	})
	sender.Send(data)

	if err := sender.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "sent %d bytes\n", len(data))
	return nil
}

func (o *sendOptions) readInput() ([]byte, error) {
	if o.InputFile == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(o.InputFile)
}
