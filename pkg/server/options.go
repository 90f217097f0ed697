package server

import (
	"flag"
	"time"

	"github.com/spf13/pflag"
	"k8s.io/klog/v2"

	"github.com/k8snetworkplumbingwg/tc-shaper/pkg/config"
	netwrappers "github.com/k8snetworkplumbingwg/tc-shaper/pkg/net"
	"github.com/k8snetworkplumbingwg/tc-shaper/pkg/tc"
)

// Options stores option for the command
type Options struct {
	// ConfigPath is the path to the desired state file.
	ConfigPath string
	// Config is the parsed desired state document. When set it takes
	// precedence over ConfigPath.
	Config       *config.Config
	check        bool
	resyncPeriod time.Duration
	rulesPath    string

	// fields below are set by tests to inject fakes
	netlinkProvider netwrappers.NetlinkProvider
	createTCForDev  func(string) tc.TC
}

// AddFlags adds command line flags into command
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	klog.InitFlags(nil)
	fs.SortFlags = false
	fs.StringVar(&o.ConfigPath, "config", o.ConfigPath, "Path to the desired state file (yaml).")
	fs.BoolVar(&o.check, "check", o.check, "Log the commands that would be executed to converge live state without executing them.")
	fs.DurationVar(&o.resyncPeriod, "resync-period", o.resyncPeriod, "If non-zero, will re-run reconciliation at this interval until terminated. Zero runs a single pass.")
	fs.StringVar(&o.rulesPath, "rules-path", o.rulesPath, "If non-empty, will use this path to store per device rules for troubleshooting.")
	fs.AddGoFlagSet(flag.CommandLine)
}

// NewOptions initializes Options
func NewOptions() *Options {
	return &Options{}
}
