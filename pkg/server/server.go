package server

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/klog/v2"
	"k8s.io/utils/exec"

	"github.com/k8snetworkplumbingwg/tc-shaper/pkg/config"
	netwrappers "github.com/k8snetworkplumbingwg/tc-shaper/pkg/net"
	"github.com/k8snetworkplumbingwg/tc-shaper/pkg/tc"
	cmdlinedriver "github.com/k8snetworkplumbingwg/tc-shaper/pkg/tc/driver/cmdline"
)

// Server structure defines data for server
type Server struct {
	// Options carries the command line configuration the server was built with
	Options *Options
	// desired is the normalized desired state, one entry per device
	desired []config.DesiredState

	netlinkProvider  netwrappers.NetlinkProvider
	createTCForDevFn func(string) tc.TC
}

// NewServer creates a new *Server instance. It loads and normalizes the
// desired state document so an invalid document fails before anything runs.
func NewServer(o *Options) (*Server, error) {
	var cfg *config.Config
	var err error

	switch {
	case o.Config != nil:
		cfg = o.Config
	case o.ConfigPath != "":
		cfg, err = config.Load(o.ConfigPath)
	default:
		err = errors.New("a desired state file must be provided via --config")
	}
	if err != nil {
		return nil, err
	}

	desired, err := cfg.Normalize()
	if err != nil {
		return nil, errors.Wrap(err, "invalid desired state")
	}

	if o.rulesPath != "" {
		// create rules directory if it does not exist
		if _, err := os.Stat(o.rulesPath); os.IsNotExist(err) {
			err = os.Mkdir(o.rulesPath, 0700)
			if err != nil {
				return nil, err
			}
		}
	}

	if o.netlinkProvider == nil {
		o.netlinkProvider = netwrappers.NewNetlinkProviderImpl()
	}

	server := &Server{
		Options:          o,
		desired:          desired,
		netlinkProvider:  o.netlinkProvider,
		createTCForDevFn: o.createTCForDev,
	}

	if server.createTCForDevFn == nil {
		// use builtin method if unspecified
		server.createTCForDevFn = server.createTCForDev
	}

	return server, nil
}

// Run reconciles desired state once, or in a loop every resync period when
// one is configured, until the provided context is done. It returns the
// error of the last completed pass.
func (s *Server) Run(ctx context.Context) error {
	if s.Options.resyncPeriod == 0 {
		return s.syncDesiredState()
	}

	var lastErr error
	wait.Until(func() {
		lastErr = s.syncDesiredState()
	}, s.Options.resyncPeriod, ctx.Done())
	return lastErr
}

// syncDesiredState is the main business logic for Server, it reconciles live
// tc state on every configured device to match the desired state document
func (s *Server) syncDesiredState() error {
	klog.Infof("syncDesiredState")
	now := time.Now()
	defer func() {
		klog.V(4).InfoS("syncDesiredState", "execution time", time.Since(now))
	}()

	var changed, unchanged, failed int
	var firstErr error

	for i := range s.desired {
		ds := &s.desired[i]
		klog.InfoS("reconciling device", "device", ds.Device)

		c, u, f, err := s.syncDevice(ds)
		changed += c
		unchanged += u
		failed += f
		if err != nil {
			klog.ErrorS(err, "failed to reconcile device. skipping.", "device", ds.Device)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		if err := s.writeDeviceRules(ds); err != nil {
			klog.Warningf("failed to save device rules. %v", err)
		}
	}

	klog.InfoS("sync done", "changed", changed, "unchanged", unchanged, "failed", failed)
	return firstErr
}

// syncDevice reconciles all desired records of a single device in qdisc,
// class, filter order. The first failure aborts the device; records not
// reached count as failed.
func (s *Server) syncDevice(ds *config.DesiredState) (changed, unchanged, failed int, err error) {
	total := len(ds.QDiscs) + len(ds.Classes) + len(ds.Filters)

	if _, linkErr := s.netlinkProvider.LinkByName(ds.Device); linkErr != nil {
		return 0, 0, total, errors.Wrapf(tc.ErrDeviceNotFound, "%q: %s", ds.Device, linkErr)
	}

	tcAPI := s.createTCForDevFn(ds.Device)
	validator := tc.NewValidatorImpl(klog.NewKlogr().WithName("tc-validator"))
	reconciler := tc.NewReconcilerImpl(
		tcAPI, validator, klog.NewKlogr().WithName("tc-reconciler"), s.Options.check)

	record := func(res tc.Result) {
		if res.Changed {
			changed++
		} else {
			unchanged++
		}
	}

	for i := range ds.QDiscs {
		res, rerr := reconciler.ReconcileQDisc(ds.QDiscs[i])
		if rerr != nil {
			return changed, unchanged, total - changed - unchanged, errors.Wrapf(rerr, "device %s", ds.Device)
		}
		record(res)
		klog.V(5).InfoS("reconciled qdisc", "device", ds.Device, "changed", res.Changed)
	}

	for i := range ds.Classes {
		res, rerr := reconciler.ReconcileClass(ds.Classes[i])
		if rerr != nil {
			return changed, unchanged, total - changed - unchanged, errors.Wrapf(rerr, "device %s", ds.Device)
		}
		record(res)
		klog.V(5).InfoS("reconciled class", "device", ds.Device, "changed", res.Changed)
	}

	for i := range ds.Filters {
		res, rerr := reconciler.ReconcileFilter(ds.Filters[i])
		if rerr != nil {
			return changed, unchanged, total - changed - unchanged, errors.Wrapf(rerr, "device %s", ds.Device)
		}
		record(res)
		klog.V(5).InfoS("reconciled filter", "device", ds.Device, "changed", res.Changed)
	}

	return changed, unchanged, 0, nil
}

// writeDeviceRules saves the device desired objects to file if rulesPath option is enabled in server
func (s *Server) writeDeviceRules(ds *config.DesiredState) error {
	// skip it if no rulesPath option
	if s.Options.rulesPath == "" {
		return nil
	}

	fullPath := filepath.Join(s.Options.rulesPath, ds.Device+".rules")
	klog.V(4).InfoS("saving device rules", "path", fullPath)
	writer := tc.NewRulesWriterImpl(fullPath, klog.NewKlogr().WithName("rules-writer"))
	return writer.WriteRules(ds.QDiscs, ds.Classes, ds.Filters)
}

// createTCForDev creates a new tc.TC bound to the given netdev
func (s *Server) createTCForDev(dev string) tc.TC {
	return cmdlinedriver.NewTcCmdLineImpl(
		dev, klog.NewKlogr().WithName("tc-cmdline-driver"), exec.New())
}
