package cmd

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mubashir494/swp/internal/link"
	"github.com/mubashir494/swp/internal/profile"
	"github.com/mubashir494/swp/internal/swp"
)

type recvOptions struct {
	Listen      string
	OutputFile  string
	ProfileFile string
}

func newRecvCmd() *cobra.Command {
	o := &recvOptions{}

	cmd := &cobra.Command{
		Use:          "recv",
		Short:        "receives a reliable stream and writes it to a file (or stdout)",
		SilenceUsage: true,
		RunE:         o.run,
	}

	cmd.Flags().StringVarP(&o.Listen, "listen", "l", "127.0.0.1:9000", "address to listen on")
	cmd.Flags().StringVarP(&o.OutputFile, "out", "o", "", "file to write, stdout if omitted")
	cmd.Flags().StringVarP(&o.ProfileFile, "profile", "p", "", "profile file with endpoint settings")

	return cmd
}

func (o *recvOptions) run(cmd *cobra.Command, args []string) error {
	settings := profile.Default()
	if o.ProfileFile != "" {
		loaded, err := profile.Load(o.ProfileFile)
		if err != nil {
			return fmt.Errorf("could not load profile: %w", err)
		}
		settings = loaded
	}

	l, err := link.ListenUDP(o.Listen, link.UDPOptions{
		ReadTimeout: settings.ReadTimeout,
		Transmit:    settings.TransmitDelay,
		Propagation: settings.PropagationDelay,
	})
	if err != nil {
		return fmt.Errorf("could not listen on %s: %w", o.Listen, err)
	}
	defer l.Shutdown()

	out := os.Stdout
	if o.OutputFile != "" {
		file, err := os.Create(o.OutputFile)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	log.Printf("recv listening on %s\n", l.LocalAddr())
	receiver := swp.NewReceiver(l, swp.ReceiverOptions{WindowSize: settings.WindowSize})

	go func() {
		for {
			chunk := receiver.Recv()
			if _, err := out.Write(chunk); err != nil {
				log.Printf("recv: error writing output: %s\n", err)
				return
			}
		}
	}()

	// wait until process is killed
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	return nil
}
