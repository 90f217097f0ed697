package cmdline

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
	"k8s.io/utils/exec"

	"github.com/k8snetworkplumbingwg/tc-shaper/pkg/tc"
	"github.com/k8snetworkplumbingwg/tc-shaper/pkg/tc/types"
)

// cannotFindDevice is the stderr text tc emits when the netdev does not exist
const cannotFindDevice = "Cannot find device"

// NewTcCmdLineImpl creates a new instance of TcCmdLineImpl
func NewTcCmdLineImpl(dev string, log klog.Logger, executor exec.Interface) *TcCmdLineImpl {
	return &TcCmdLineImpl{
		netDev:   dev,
		log:      log,
		executor: executor,
		cmdline:  "tc",
	}
}

// TcCmdLineImpl is a concrete implementation of TC interface utilizing TC command line
type TcCmdLineImpl struct {
	netDev   string
	log      klog.Logger
	executor exec.Interface

	cmdline string
}

// execTcCmdNoOutput executes tc command with args, returning error if occurred
func (t *TcCmdLineImpl) execTcCmdNoOutput(args []string) error {
	t.log.V(10).Info("executing", "cmd", t.cmdline, "args", args)
	cmd := t.executor.Command(t.cmdline, args...)
	var stderr bytes.Buffer
	cmd.SetStderr(&stderr)
	err := cmd.Run()
	t.log.V(10).Info("exec result", "err", err, "stderr", stderr.String())
	if err != nil {
		return t.execError(args, stderr.String(), err)
	}
	return nil
}

// execTcCmd executes tc command with args, returning stdout output and error
func (t *TcCmdLineImpl) execTcCmd(args []string) ([]byte, error) {
	t.log.V(10).Info("executing", "cmd", t.cmdline, "args", args)
	cmd := t.executor.Command(t.cmdline, args...)
	var stderr bytes.Buffer
	cmd.SetStderr(&stderr)
	out, err := cmd.Output()
	t.log.V(10).Info("exec result", "err", err, "out", out, "stderr", stderr.String())
	if err != nil {
		return nil, t.execError(args, stderr.String(), err)
	}
	return out, nil
}

// execError classifies a failed tc invocation. A missing device is reported
// distinctly; everything else carries the full command line and trailing stderr.
func (t *TcCmdLineImpl) execError(args []string, stderr string, err error) error {
	stderr = strings.TrimSpace(stderr)
	if strings.Contains(stderr, cannotFindDevice) {
		return errors.Wrapf(tc.ErrDeviceNotFound, "%q", t.netDev)
	}
	if stderr == "" {
		return errors.Wrapf(tc.ErrCommandFailed, "%s %s: %s", t.cmdline, strings.Join(args, " "), err)
	}
	return errors.Wrapf(tc.ErrCommandFailed, "%s %s: %s: %s", t.cmdline, strings.Join(args, " "), err, stderr)
}

// QDiscAdd implements TC interface
func (t *TcCmdLineImpl) QDiscAdd(qdisc types.QDisc) error {
	args := []string{"qdisc", "add", "dev", t.netDev}
	args = append(args, qdisc.GenCmdLineArgs()...)
	return t.execTcCmdNoOutput(args)
}

// QDiscDel implements TC interface. Deletion is keyed by attachment point,
// not by the full qdisc spec.
func (t *TcCmdLineImpl) QDiscDel(qdisc types.QDisc) error {
	args := []string{"qdisc", "del", "dev", t.netDev}
	if qdisc.Type() == types.QDiscIngressType {
		args = append(args, string(types.QDiscIngressType))
	} else {
		args = append(args, qdisc.Attrs().GenCmdLineArgs()...)
	}
	return t.execTcCmdNoOutput(args)
}

// QDiscList implements TC interface
func (t *TcCmdLineImpl) QDiscList() ([]types.QDisc, error) {
	args := []string{"qdisc", "list", "dev", t.netDev}
	out, err := t.execTcCmd(args)
	if err != nil {
		return nil, err
	}
	return parseQDiscs(string(out))
}

// ClassAdd implements TC interface
func (t *TcCmdLineImpl) ClassAdd(class types.Class) error {
	args := []string{"class", "add", "dev", t.netDev}
	args = append(args, class.GenCmdLineArgs()...)
	return t.execTcCmdNoOutput(args)
}

// ClassChange implements TC interface
func (t *TcCmdLineImpl) ClassChange(class types.Class) error {
	args := []string{"class", "change", "dev", t.netDev}
	args = append(args, class.GenCmdLineArgs()...)
	return t.execTcCmdNoOutput(args)
}

// ClassDel implements TC interface
func (t *TcCmdLineImpl) ClassDel(classAttrs *types.ClassAttrs) error {
	args := []string{"class", "del", "dev", t.netDev}
	args = append(args, classAttrs.GenCmdLineArgs()...)
	return t.execTcCmdNoOutput(args)
}

// ClassList implements TC interface
func (t *TcCmdLineImpl) ClassList() ([]types.Class, error) {
	args := []string{"class", "list", "dev", t.netDev}
	out, err := t.execTcCmd(args)
	if err != nil {
		return nil, err
	}
	return parseClasses(string(out), t.log)
}

// FilterAdd implements TC interface
func (t *TcCmdLineImpl) FilterAdd(filter types.Filter) error {
	args := []string{"filter", "add", "dev", t.netDev}
	args = append(args, filter.GenCmdLineArgs()...)
	return t.execTcCmdNoOutput(args)
}

// FilterDel implements TC interface
func (t *TcCmdLineImpl) FilterDel(filterAttrs *types.FilterAttrs) error {
	args := []string{"filter", "del", "dev", t.netDev}
	args = append(args, filterAttrs.GenCmdLineArgs()...)
	return t.execTcCmdNoOutput(args)
}

// FilterList implements TC interface
func (t *TcCmdLineImpl) FilterList(parent types.Handle) ([]types.Filter, error) {
	args := []string{"filter", "list", "dev", t.netDev, "parent", parent.String()}
	out, err := t.execTcCmd(args)
	if err != nil {
		return nil, err
	}
	return parseFilters(string(out), parent, t.log)
}
