package config

import (
	"encoding/json"
	"math"
	"os"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"

	"github.com/k8snetworkplumbingwg/tc-shaper/pkg/tc"
	tctypes "github.com/k8snetworkplumbingwg/tc-shaper/pkg/tc/types"
	"github.com/k8snetworkplumbingwg/tc-shaper/pkg/utils"
)

// Truthy is a boolean-like document value. YAML authors may write it as a
// native boolean (yes, true, on) or as a quoted string ("yes", "on"); both
// forms normalize into a strict bool at unmarshal time.
type Truthy bool

// UnmarshalJSON implements json.Unmarshaler interface
func (t *Truthy) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*t = Truthy(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Errorf("invalid boolean-like value %s", string(data))
	}
	v, err := utils.ParseTruthy(s)
	if err != nil {
		return err
	}
	*t = Truthy(v)
	return nil
}

// QDiscSpec is a single qdisc record of the desired state document
type QDiscSpec struct {
	// Device overrides the document level default device
	Device string `json:"device,omitempty"`
	// Handle is the qdisc handle, e.g. "1:0". Required for htb.
	Handle string `json:"handle,omitempty"`
	// Discipline is the queueing discipline, htb or ingress
	Discipline string `json:"discipline"`
	// State is present or absent, defaulting to present
	State string `json:"state,omitempty"`
}

// ClassSpec is a single htb class record of the desired state document
type ClassSpec struct {
	// Device overrides the document level default device
	Device string `json:"device,omitempty"`
	// Parent is the handle of the qdisc or class the class lives under
	Parent string `json:"parent"`
	// ClassID is the handle identifying the class
	ClassID string `json:"classid"`
	// Rate is the guaranteed bandwidth, e.g. "100Kbit". Required for present classes.
	Rate string `json:"rate,omitempty"`
	// Ceil is the borrow ceiling, defaulting to Rate
	Ceil string `json:"ceil,omitempty"`
	// State is present or absent, defaulting to present
	State string `json:"state,omitempty"`
}

// FilterSpec is a single filter record of the desired state document. Exactly
// one classifier selector must be set: Port (u32 dport match) or Cgroup.
type FilterSpec struct {
	// Device overrides the document level default device
	Device string `json:"device,omitempty"`
	// Parent is the handle of the qdisc or class the filter attaches to
	Parent string `json:"parent"`
	// Protocol is the filter protocol, defaulting to ip
	Protocol string `json:"protocol,omitempty"`
	// Priority orders filters under the same parent, lower wins. Required.
	Priority uint16 `json:"priority"`
	// Port selects a u32 match on the destination port
	Port *int `json:"port,omitempty"`
	// Cgroup selects the cgroup classifier
	Cgroup *Truthy `json:"cgroup,omitempty"`
	// Handle is the cgroup classifier handle, e.g. "8:" or "0xa4".
	// Required when Cgroup is set.
	Handle string `json:"handle,omitempty"`
	// FlowID is the classid matched traffic is steered to. Required for
	// present u32 filters, optional for cgroup.
	FlowID string `json:"flowid,omitempty"`
	// State is present or absent, defaulting to present
	State string `json:"state,omitempty"`
}

// Config is the on-disk desired state document
type Config struct {
	// Device is the device records apply to unless they name one themselves
	Device  string       `json:"device,omitempty"`
	QDiscs  []QDiscSpec  `json:"qdiscs,omitempty"`
	Classes []ClassSpec  `json:"classes,omitempty"`
	Filters []FilterSpec `json:"filters,omitempty"`
}

// DesiredState is the normalized desired configuration of a single device
type DesiredState struct {
	Device  string
	QDiscs  []tc.QDiscDesired
	Classes []tc.ClassDesired
	Filters []tc.FilterDesired
}

// Load reads and unmarshals the desired state document at path. Unknown
// document fields are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}
	cfg := &Config{}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config file %s", path)
	}
	return cfg, nil
}

// Normalize validates every record of the document and converts it into
// typed desired state, grouped per device in order of first appearance.
// Record order within each entity kind is preserved. Past this boundary
// handles, rates and booleans are strictly typed.
func (c *Config) Normalize() ([]DesiredState, error) {
	var order []string
	byDev := map[string]*DesiredState{}
	stateFor := func(dev string) *DesiredState {
		ds, ok := byDev[dev]
		if !ok {
			ds = &DesiredState{Device: dev}
			byDev[dev] = ds
			order = append(order, dev)
		}
		return ds
	}

	for i := range c.QDiscs {
		spec := &c.QDiscs[i]
		dev, err := c.deviceFor(spec.Device)
		if err != nil {
			return nil, errors.Wrapf(err, "qdiscs[%d]", i)
		}
		desired, err := spec.normalize()
		if err != nil {
			return nil, errors.Wrapf(err, "qdiscs[%d]", i)
		}
		ds := stateFor(dev)
		ds.QDiscs = append(ds.QDiscs, *desired)
	}

	for i := range c.Classes {
		spec := &c.Classes[i]
		dev, err := c.deviceFor(spec.Device)
		if err != nil {
			return nil, errors.Wrapf(err, "classes[%d]", i)
		}
		desired, err := spec.normalize()
		if err != nil {
			return nil, errors.Wrapf(err, "classes[%d]", i)
		}
		ds := stateFor(dev)
		ds.Classes = append(ds.Classes, *desired)
	}

	for i := range c.Filters {
		spec := &c.Filters[i]
		dev, err := c.deviceFor(spec.Device)
		if err != nil {
			return nil, errors.Wrapf(err, "filters[%d]", i)
		}
		desired, err := spec.normalize()
		if err != nil {
			return nil, errors.Wrapf(err, "filters[%d]", i)
		}
		ds := stateFor(dev)
		ds.Filters = append(ds.Filters, *desired)
	}

	states := make([]DesiredState, 0, len(order))
	for _, dev := range order {
		states = append(states, *byDev[dev])
	}
	return states, nil
}

// deviceFor resolves the device a record applies to
func (c *Config) deviceFor(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if c.Device != "" {
		return c.Device, nil
	}
	return "", errors.New("no device specified and the document sets no default")
}

// parseState parses a record state string, defaulting to present
func parseState(s string) (tc.State, error) {
	switch s {
	case "", string(tc.StatePresent):
		return tc.StatePresent, nil
	case string(tc.StateAbsent):
		return tc.StateAbsent, nil
	}
	return "", errors.Errorf("invalid state %q, expected present or absent", s)
}

// normalize converts the qdisc record into typed desired state
func (q *QDiscSpec) normalize() (*tc.QDiscDesired, error) {
	state, err := parseState(q.State)
	if err != nil {
		return nil, err
	}

	var qdisc tctypes.QDisc
	switch tctypes.QDiscType(q.Discipline) {
	case tctypes.QDiscHTBType:
		builder := tctypes.NewHTBQDiscBuilder()
		if q.Handle != "" {
			handle, err := tctypes.ParseHandle(q.Handle)
			if err != nil {
				return nil, err
			}
			builder.WithHandle(handle)
		}
		qdisc = builder.Build()
	case tctypes.QDiscIngressType:
		// ingress carries a kernel fixed handle, a configured one is ignored
		qdisc = tctypes.NewIngressQDiscBuilder().Build()
	case "":
		return nil, errors.New("discipline is required")
	default:
		return nil, errors.Errorf("unsupported discipline %q", q.Discipline)
	}

	return &tc.QDiscDesired{QDisc: qdisc, State: state}, nil
}

// normalize converts the class record into typed desired state
func (cl *ClassSpec) normalize() (*tc.ClassDesired, error) {
	state, err := parseState(cl.State)
	if err != nil {
		return nil, err
	}
	parent, err := tctypes.ParseHandle(cl.Parent)
	if err != nil {
		return nil, errors.Wrap(err, "bad parent")
	}
	classID, err := tctypes.ParseHandle(cl.ClassID)
	if err != nil {
		return nil, errors.Wrap(err, "bad classid")
	}

	builder := tctypes.NewHTBClassBuilder().WithParent(parent).WithClassID(classID)
	if cl.Rate != "" {
		rate, err := tctypes.ParseRate(cl.Rate)
		if err != nil {
			return nil, errors.Wrap(err, "bad rate")
		}
		builder.WithRate(rate)
	}
	if cl.Ceil != "" {
		ceil, err := tctypes.ParseRate(cl.Ceil)
		if err != nil {
			return nil, errors.Wrap(err, "bad ceil")
		}
		builder.WithCeil(ceil)
	}

	return &tc.ClassDesired{Class: builder.Build(), State: state}, nil
}

// normalize converts the filter record into typed desired state
func (f *FilterSpec) normalize() (*tc.FilterDesired, error) {
	state, err := parseState(f.State)
	if err != nil {
		return nil, err
	}
	parent, err := tctypes.ParseHandle(f.Parent)
	if err != nil {
		return nil, errors.Wrap(err, "bad parent")
	}
	if f.Priority == 0 {
		return nil, errors.New("priority is required")
	}

	cgroup := f.Cgroup != nil && bool(*f.Cgroup)
	var filter tctypes.Filter
	switch {
	case f.Port != nil && cgroup:
		return nil, errors.New("port and cgroup classifiers are mutually exclusive")
	case f.Port != nil:
		if *f.Port < 0 || *f.Port > math.MaxUint16 {
			return nil, errors.Wrapf(tc.ErrPortOutOfRange, "port %d", *f.Port)
		}
		builder := tctypes.NewU32FilterBuilder().
			WithParent(parent).
			WithPriority(f.Priority).
			WithDstPort(uint16(*f.Port))
		if f.Protocol != "" {
			builder.WithProtocol(tctypes.FilterProtocol(f.Protocol))
		}
		if f.FlowID == "" {
			if state == tc.StatePresent {
				return nil, errors.New("flowid is required")
			}
		} else {
			flowID, err := tctypes.ParseHandle(f.FlowID)
			if err != nil {
				return nil, errors.Wrap(err, "bad flowid")
			}
			builder.WithFlowID(flowID)
		}
		filter = builder.Build()
	case cgroup:
		if f.Handle == "" {
			return nil, tc.ErrMissingCgroupHandle
		}
		// cgroup handles live in their own namespace and tc renders them as a
		// bare hex major, so the minor must be zero
		handle, err := tctypes.ParseHandle(f.Handle)
		if err != nil {
			return nil, errors.Wrap(err, "bad handle")
		}
		if !handle.IsRoot() {
			return nil, errors.Wrapf(tctypes.ErrInvalidHandle,
				"cgroup handle %q must have minor 0", f.Handle)
		}
		builder := tctypes.NewCgroupFilterBuilder().
			WithParent(parent).
			WithPriority(f.Priority).
			WithHandle(handle)
		if f.Protocol != "" {
			builder.WithProtocol(tctypes.FilterProtocol(f.Protocol))
		}
		if f.FlowID != "" {
			flowID, err := tctypes.ParseHandle(f.FlowID)
			if err != nil {
				return nil, errors.Wrap(err, "bad flowid")
			}
			builder.WithFlowID(flowID)
		}
		filter = builder.Build()
	default:
		return nil, errors.New("a filter requires exactly one of port or cgroup classifiers")
	}

	return &tc.FilterDesired{Filter: filter, State: state}, nil
}
