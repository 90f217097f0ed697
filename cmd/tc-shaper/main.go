package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/klog/v2"

	"github.com/k8snetworkplumbingwg/tc-shaper/pkg/server"
	"github.com/k8snetworkplumbingwg/tc-shaper/pkg/utils"
)

const logFlushFreqFlagName = "log-flush-frequency"

var logFlushFreq = pflag.Duration(logFlushFreqFlagName, 5*time.Second, "Maximum number of seconds between log flushes")

// KlogWriter serves as a bridge between the standard log package and the glog package.
type KlogWriter struct{}

// Write implements the io.Writer interface.
func (writer KlogWriter) Write(data []byte) (n int, err error) {
	klog.InfoDepth(1, string(data))
	return len(data), nil
}

func initLogs(ctx context.Context) {
	log.SetOutput(KlogWriter{})
	log.SetFlags(0)
	go wait.Until(klog.Flush, *logFlushFreq, ctx.Done())
}

func main() {
	ctx := utils.SetupSignalHandler()
	initLogs(ctx)
	opts := server.NewOptions()

	cmd := &cobra.Command{
		Use: "tc-shaper",
		Long: `tc-shaper reconciles traffic control (tc) state on linux network devices
with a desired state file. It manages htb qdiscs, htb classes and
u32/cgroup filters, converging live state towards the desired state.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := server.NewServer(opts)
			if err != nil {
				return err
			}

			return srv.Run(ctx)
		},
	}
	opts.AddFlags(cmd.Flags())

	if err := cmd.Execute(); err != nil {
		klog.Flush()
		os.Exit(1)
	}
	klog.Flush()
}
