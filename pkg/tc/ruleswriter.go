package tc

import (
	"bytes"
	"os"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	tctypes "github.com/k8snetworkplumbingwg/tc-shaper/pkg/tc/types"
	"github.com/k8snetworkplumbingwg/tc-shaper/pkg/utils"
)

// RulesWriter renders desired tc objects of a device to a file in a
// human-readable format, mainly for debug and inspection purposes.
type RulesWriter interface {
	// WriteRules writes the given desired objects, skipping the write when
	// the rendered content matches what the file already holds
	WriteRules(qdiscs []QDiscDesired, classes []ClassDesired, filters []FilterDesired) error
}

// NewRulesWriterImpl returns a new RulesWriterImpl instance
func NewRulesWriterImpl(path string, log klog.Logger) *RulesWriterImpl {
	return &RulesWriterImpl{
		log:  log,
		path: path,
	}
}

// RulesWriterImpl implements RulesWriter interface
type RulesWriterImpl struct {
	log  klog.Logger
	path string
}

// WriteRules implements RulesWriter interface
// Note: objects are rendered as their command line arguments, leveraging the
// CmdLineGenerator interface which is implemented by all objects. Absent
// records are rendered with an "absent" marker so the file reflects the full
// desired state, not only what should exist.
func (w RulesWriterImpl) WriteRules(
	qdiscs []QDiscDesired, classes []ClassDesired, filters []FilterDesired) error {
	exist, err := utils.PathExists(w.path)
	if err != nil {
		return errors.Wrapf(err, "failed to determine if path exist: %s", w.path)
	}

	currentBuf := bytes.NewBuffer([]byte{})
	if exist {
		data, err := os.ReadFile(w.path)
		if err != nil {
			w.log.Error(err, "failed to read rules file", "path", w.path)
		} else {
			currentBuf = bytes.NewBuffer(data)
		}
	}

	newBuf := bytes.Buffer{}
	_, _ = newBuf.WriteString("qdiscs:\n")
	for _, q := range qdiscs {
		writeRule(&newBuf, q.QDisc, q.State)
	}
	_, _ = newBuf.WriteString("classes:\n")
	for _, c := range classes {
		writeRule(&newBuf, c.Class, c.State)
	}
	_, _ = newBuf.WriteString("filters:\n")
	for _, f := range filters {
		writeRule(&newBuf, f.Filter, f.State)
	}

	if bytes.Equal(currentBuf.Bytes(), newBuf.Bytes()) {
		w.log.V(10).Info("current and new rules are the same - no action needed")
		return nil
	}

	w.log.Info("saving new rules", "path", w.path)

	file, err := os.Create(w.path)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = newBuf.WriteTo(file)
	return err
}

func writeRule(buf *bytes.Buffer, obj tctypes.CmdLineGenerator, state State) {
	_, _ = buf.WriteString(strings.Join(obj.GenCmdLineArgs(), " "))
	if state == StateAbsent {
		_, _ = buf.WriteString(" [absent]")
	}
	_, _ = buf.WriteRune('\n')
}
