package tc

import (
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	tctypes "github.com/k8snetworkplumbingwg/tc-shaper/pkg/tc/types"
)

// State is the desired lifecycle state of a tc object
type State string

const (
	// StatePresent indicates the object should exist in live state
	StatePresent State = "present"
	// StateAbsent indicates the object should not exist in live state
	StateAbsent State = "absent"
)

// QDiscDesired couples a qdisc with its desired state
type QDiscDesired struct {
	QDisc tctypes.QDisc
	State State
}

// ClassDesired couples a class with its desired state
type ClassDesired struct {
	Class tctypes.Class
	State State
}

// FilterDesired couples a filter with its desired state
type FilterDesired struct {
	Filter tctypes.Filter
	State State
}

// Result reports the outcome of reconciling a single object
type Result struct {
	// Changed is true if live state was modified, or would have been in dry run
	Changed bool
}

// Reconciler drives live tc state on a netdev towards desired state, one
// object at a time
type Reconciler interface {
	// ReconcileQDisc converges the given qdisc towards its desired state
	ReconcileQDisc(desired QDiscDesired) (Result, error)
	// ReconcileClass converges the given class towards its desired state
	ReconcileClass(desired ClassDesired) (Result, error)
	// ReconcileFilter converges the given filter towards its desired state
	ReconcileFilter(desired FilterDesired) (Result, error)
}

// NewReconcilerImpl creates a new ReconcilerImpl
func NewReconcilerImpl(tcIfc TC, validator Validator, log klog.Logger, dryRun bool) *ReconcilerImpl {
	return &ReconcilerImpl{
		tcAPI:     tcIfc,
		validator: validator,
		log:       log,
		dryRun:    dryRun,
	}
}

// ReconcilerImpl is an implementation of Reconciler interface using provided TC interface
// to read and mutate live state. A divergent object converges by delete then add,
// never by changing it in place.
type ReconcilerImpl struct {
	tcAPI     TC
	validator Validator
	log       klog.Logger
	dryRun    bool
}

// ReconcileQDisc implements Reconciler interface
func (r *ReconcilerImpl) ReconcileQDisc(desired QDiscDesired) (Result, error) {
	qdiscs, err := r.tcAPI.QDiscList()
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to list qdiscs")
	}

	live := liveQDiscFor(desired.QDisc, qdiscs)
	r.log.V(10).Info("reconciling qdisc",
		"handle", desired.QDisc.Attrs().Handle, "state", desired.State, "found", live != nil)

	if desired.State == StateAbsent {
		if live == nil {
			return Result{}, nil
		}
		if r.dryRun {
			r.logWouldRun("qdisc del", live)
			return Result{Changed: true}, nil
		}
		if err := r.tcAPI.QDiscDel(live); err != nil {
			return Result{}, err
		}
		if err := r.verifyQDisc(desired); err != nil {
			return Result{}, err
		}
		return Result{Changed: true}, nil
	}

	if live != nil && live.Equals(desired.QDisc) {
		return Result{}, nil
	}

	if err := r.validator.ValidateQDisc(desired.QDisc); err != nil {
		return Result{}, err
	}

	if r.dryRun {
		if live != nil {
			r.logWouldRun("qdisc del", live)
		}
		r.logWouldRun("qdisc add", desired.QDisc)
		return Result{Changed: true}, nil
	}

	// free the attachment point if a divergent qdisc occupies it
	if live != nil {
		if err := r.tcAPI.QDiscDel(live); err != nil {
			return Result{}, err
		}
	}
	if err := r.tcAPI.QDiscAdd(desired.QDisc); err != nil {
		if live != nil {
			return Result{}, errors.Wrapf(err, "qdisc %s removed but not re-added", live.Attrs().Handle)
		}
		return Result{}, err
	}
	if err := r.verifyQDisc(desired); err != nil {
		return Result{}, err
	}
	return Result{Changed: true}, nil
}

// ReconcileClass implements Reconciler interface
func (r *ReconcilerImpl) ReconcileClass(desired ClassDesired) (Result, error) {
	classes, err := r.tcAPI.ClassList()
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to list classes")
	}

	live := liveClassFor(desired.Class, classes)
	r.log.V(10).Info("reconciling class",
		"classid", desired.Class.Attrs().ClassID, "state", desired.State, "found", live != nil)

	if desired.State == StateAbsent {
		if live == nil {
			return Result{}, nil
		}
		if r.dryRun {
			r.logWouldRun("class del", live.Attrs())
			return Result{Changed: true}, nil
		}
		if err := r.tcAPI.ClassDel(live.Attrs()); err != nil {
			return Result{}, err
		}
		if err := r.verifyClass(desired); err != nil {
			return Result{}, err
		}
		return Result{Changed: true}, nil
	}

	if live != nil && live.Equals(desired.Class) {
		return Result{}, nil
	}

	qdiscs, err := r.tcAPI.QDiscList()
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to list qdiscs")
	}
	if err := r.validator.ValidateClass(desired.Class, qdiscs, classes); err != nil {
		return Result{}, err
	}

	if r.dryRun {
		if live != nil {
			r.logWouldRun("class del", live.Attrs())
		}
		r.logWouldRun("class add", desired.Class)
		return Result{Changed: true}, nil
	}

	if live != nil {
		if err := r.tcAPI.ClassDel(live.Attrs()); err != nil {
			return Result{}, err
		}
	}
	if err := r.tcAPI.ClassAdd(desired.Class); err != nil {
		if live != nil {
			return Result{}, errors.Wrapf(err, "class %s removed but not re-added", live.Attrs().ClassID)
		}
		return Result{}, err
	}
	if err := r.verifyClass(desired); err != nil {
		return Result{}, err
	}
	return Result{Changed: true}, nil
}

// ReconcileFilter implements Reconciler interface
func (r *ReconcilerImpl) ReconcileFilter(desired FilterDesired) (Result, error) {
	filters, err := r.tcAPI.FilterList(desired.Filter.Attrs().Parent)
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to list filters")
	}

	liveSet := NewFilterSetOf(filters...)
	claimed := claimantsOf(desired.Filter, filters)
	r.log.V(10).Info("reconciling filter",
		"kind", desired.Filter.Kind(), "prio", desired.Filter.Attrs().Priority,
		"state", desired.State, "claimants", claimed.Len())

	if desired.State == StateAbsent {
		if claimed.Len() == 0 {
			return Result{}, nil
		}
		if r.dryRun {
			r.logWouldRun("filter del", identityAttrs(desired.Filter))
			return Result{Changed: true}, nil
		}
		if err := r.tcAPI.FilterDel(identityAttrs(desired.Filter)); err != nil {
			return Result{}, err
		}
		if err := r.verifyFilter(desired, liveSet.Difference(claimed)); err != nil {
			return Result{}, err
		}
		return Result{Changed: true}, nil
	}

	// claimants that diverge from the desired filter block its identity and
	// must go before the add, even when an exact match is live alongside them
	stale := claimed.Difference(NewFilterSetOf(desired.Filter))
	if liveSet.Has(desired.Filter) && stale.Len() == 0 {
		return Result{}, nil
	}

	qdiscs, err := r.tcAPI.QDiscList()
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to list qdiscs")
	}
	classes, err := r.tcAPI.ClassList()
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to list classes")
	}
	if err := r.validator.ValidateFilter(desired.Filter, qdiscs, classes); err != nil {
		return Result{}, err
	}

	if r.dryRun {
		for _, f := range stale.List() {
			r.logWouldRun("filter del", f.Attrs())
		}
		r.logWouldRun("filter add", desired.Filter)
		return Result{Changed: true}, nil
	}

	// a single delete keyed by identity clears every claimant at the priority
	if stale.Len() > 0 {
		if err := r.tcAPI.FilterDel(identityAttrs(desired.Filter)); err != nil {
			return Result{}, err
		}
	}
	expected := liveSet.Difference(claimed)
	expected.Add(desired.Filter)
	if err := r.tcAPI.FilterAdd(desired.Filter); err != nil {
		if stale.Len() > 0 {
			return Result{}, errors.Wrapf(err, "filter at prio %d removed but not re-added",
				desired.Filter.Attrs().Priority)
		}
		return Result{}, err
	}
	if err := r.verifyFilter(desired, expected); err != nil {
		return Result{}, err
	}
	return Result{Changed: true}, nil
}

// verifyQDisc re-reads live state and confirms desired took effect
func (r *ReconcilerImpl) verifyQDisc(desired QDiscDesired) error {
	qdiscs, err := r.tcAPI.QDiscList()
	if err != nil {
		return errors.Wrap(err, "failed to list qdiscs")
	}
	live := liveQDiscFor(desired.QDisc, qdiscs)
	if desired.State == StateAbsent {
		if live != nil {
			return errors.Wrapf(ErrCommandFailed,
				"qdisc %s still present after delete", live.Attrs().Handle)
		}
		return nil
	}
	if live == nil || !live.Equals(desired.QDisc) {
		return errors.Wrapf(ErrCommandFailed,
			"qdisc %s not reflected in live state after add", desired.QDisc.Attrs().Handle)
	}
	return nil
}

// verifyClass re-reads live state and confirms desired took effect
func (r *ReconcilerImpl) verifyClass(desired ClassDesired) error {
	classes, err := r.tcAPI.ClassList()
	if err != nil {
		return errors.Wrap(err, "failed to list classes")
	}
	live := liveClassFor(desired.Class, classes)
	if desired.State == StateAbsent {
		if live != nil {
			return errors.Wrapf(ErrCommandFailed,
				"class %s still present after delete", live.Attrs().ClassID)
		}
		return nil
	}
	if live == nil || !live.Equals(desired.Class) {
		return errors.Wrapf(ErrCommandFailed,
			"class %s not reflected in live state after add", desired.Class.Attrs().ClassID)
	}
	return nil
}

// verifyFilter re-reads live filters under the parent and confirms they
// equal the set expected after the apply. Comparing whole sets catches a
// delete that left a claimant behind, not just a missing add.
func (r *ReconcilerImpl) verifyFilter(desired FilterDesired, expected FilterSet) error {
	filters, err := r.tcAPI.FilterList(desired.Filter.Attrs().Parent)
	if err != nil {
		return errors.Wrap(err, "failed to list filters")
	}
	if NewFilterSetOf(filters...).Equals(expected) {
		return nil
	}
	if desired.State == StateAbsent {
		return errors.Wrapf(ErrCommandFailed,
			"filter at prio %d still present after delete", desired.Filter.Attrs().Priority)
	}
	return errors.Wrapf(ErrCommandFailed,
		"filter at prio %d not reflected in live state after add", desired.Filter.Attrs().Priority)
}

func (r *ReconcilerImpl) logWouldRun(op string, obj tctypes.CmdLineGenerator) {
	r.log.Info("dry run", "op", op, "args", strings.Join(obj.GenCmdLineArgs(), " "))
}

// liveQDiscFor returns the live qdisc occupying the attachment point of the
// desired one, or nil when that point is free. Kernel default disciplines do
// not count as occupying it.
func liveQDiscFor(desired tctypes.QDisc, live []tctypes.QDisc) tctypes.QDisc {
	for _, q := range live {
		if q.Type().IsKernelDefault() {
			continue
		}
		if desired.Type() == tctypes.QDiscIngressType {
			if q.Type() == tctypes.QDiscIngressType {
				return q
			}
			continue
		}
		if q.Type() != tctypes.QDiscIngressType && q.Attrs().Parent == nil {
			return q
		}
	}
	return nil
}

// liveClassFor returns the live class with the classid of the desired one, or nil
func liveClassFor(desired tctypes.Class, live []tctypes.Class) tctypes.Class {
	for _, c := range live {
		if c.Attrs().ClassID.Equals(desired.Attrs().ClassID) {
			return c
		}
	}
	return nil
}

// claimantsOf returns the live filters sharing the identity of the given
// one, equal to it or not. Filter identity on a device is parent, priority
// and kind.
func claimantsOf(filter tctypes.Filter, live []tctypes.Filter) FilterSet {
	claimed := NewFilterSetImpl()
	attrs := filter.Attrs()
	for _, f := range live {
		fAttrs := f.Attrs()
		if fAttrs.Kind == attrs.Kind &&
			fAttrs.Parent.Equals(attrs.Parent) &&
			fAttrs.Priority == attrs.Priority {
			claimed.Add(f)
		}
	}
	return claimed
}

// identityAttrs returns the attrs keying a filter's identity: kind, protocol,
// parent and priority. The handle is dropped so a delete keyed by these attrs
// clears every claimant of the identity in one command.
func identityAttrs(filter tctypes.Filter) *tctypes.FilterAttrs {
	attrs := *filter.Attrs()
	attrs.Handle = nil
	return &attrs
}
