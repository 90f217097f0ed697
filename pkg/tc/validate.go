package tc

import (
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	tctypes "github.com/k8snetworkplumbingwg/tc-shaper/pkg/tc/types"
)

// Validator validates desired tc objects against live state before they
// are applied to a device.
type Validator interface {
	// ValidateQDisc validates the given qdisc
	ValidateQDisc(qdisc tctypes.QDisc) error
	// ValidateClass validates the given class against live qdiscs and classes
	ValidateClass(class tctypes.Class, liveQDiscs []tctypes.QDisc, liveClasses []tctypes.Class) error
	// ValidateFilter validates the given filter against live qdiscs and classes
	ValidateFilter(filter tctypes.Filter, liveQDiscs []tctypes.QDisc, liveClasses []tctypes.Class) error
}

// NewValidatorImpl creates a new ValidatorImpl
func NewValidatorImpl(log klog.Logger) *ValidatorImpl {
	return &ValidatorImpl{log: log}
}

// ValidatorImpl implements Validator interface
type ValidatorImpl struct {
	log klog.Logger
}

// ValidateQDisc implements Validator interface. A qdisc handle is of the
// form "major:", so its minor must be zero, and htb qdiscs must carry an
// explicit handle for classes to attach under.
func (v *ValidatorImpl) ValidateQDisc(qdisc tctypes.QDisc) error {
	v.log.V(10).Info("validating qdisc", "type", qdisc.Type(), "handle", qdisc.Attrs().Handle)

	if qdisc.Type() == tctypes.QDiscIngressType {
		return nil
	}

	handle := qdisc.Attrs().Handle
	if !handle.IsRoot() {
		return errors.Wrapf(tctypes.ErrInvalidHandle, "qdisc handle %s must have minor 0", handle)
	}
	if qdisc.Type() == tctypes.QDiscHTBType && handle.Major == 0 {
		return errors.Wrap(tctypes.ErrInvalidHandle, "htb qdisc requires a handle")
	}
	return nil
}

// ValidateClass implements Validator interface. Classes attach under the
// qdisc itself or nest under another class, so the parent may name either.
func (v *ValidatorImpl) ValidateClass(
	class tctypes.Class, liveQDiscs []tctypes.QDisc, liveClasses []tctypes.Class) error {
	attrs := class.Attrs()
	v.log.V(10).Info("validating class", "classid", attrs.ClassID, "parent", attrs.Parent)

	if !parentExists(attrs.Parent, liveQDiscs, liveClasses) {
		return errors.Wrapf(ErrParentNotFound, "no qdisc or class with handle %s for class %s",
			attrs.Parent, attrs.ClassID)
	}
	if attrs.ClassID.Major != attrs.Parent.Major {
		return errors.Wrapf(tctypes.ErrInvalidHandle,
			"classid %s major does not match parent %s", attrs.ClassID, attrs.Parent)
	}
	if attrs.ClassID.IsRoot() {
		return errors.Wrapf(tctypes.ErrInvalidHandle, "classid %s must have a non zero minor", attrs.ClassID)
	}

	htbClass, ok := class.(*tctypes.HTBClass)
	if !ok {
		return errors.Errorf("unsupported class type %s", class.Type())
	}
	if htbClass.Rate == nil {
		return errors.Wrapf(tctypes.ErrInvalidRate, "class %s requires a rate", attrs.ClassID)
	}
	return nil
}

// ValidateFilter implements Validator interface
func (v *ValidatorImpl) ValidateFilter(
	filter tctypes.Filter, liveQDiscs []tctypes.QDisc, liveClasses []tctypes.Class) error {
	attrs := filter.Attrs()
	v.log.V(10).Info("validating filter", "kind", filter.Kind(), "parent", attrs.Parent, "prio", attrs.Priority)

	if !parentExists(attrs.Parent, liveQDiscs, liveClasses) {
		return errors.Wrapf(ErrParentNotFound, "no qdisc or class with handle %s for filter", attrs.Parent)
	}

	switch f := filter.(type) {
	case *tctypes.U32Filter:
		return v.validateFlowID(f.FlowID, attrs.Parent, liveClasses)
	case *tctypes.CgroupFilter:
		if attrs.Handle == nil {
			return errors.Wrapf(ErrMissingCgroupHandle, "cgroup filter at prio %d", attrs.Priority)
		}
		if f.FlowID != nil {
			return v.validateFlowID(*f.FlowID, attrs.Parent, liveClasses)
		}
		return nil
	}
	return errors.Errorf("unsupported filter kind %s", filter.Kind())
}

// validateFlowID checks that flowID names a live class whose parent chain
// reaches parent. The walk is bounded by the number of live classes so a
// malformed tree cannot loop it forever.
func (v *ValidatorImpl) validateFlowID(
	flowID tctypes.Handle, parent tctypes.Handle, liveClasses []tctypes.Class) error {
	if flowID.Major != parent.Major {
		return errors.Wrapf(ErrFlowIDUnreachable,
			"flowid %s major does not match parent %s", flowID, parent)
	}

	cur := flowID
	for i := 0; i <= len(liveClasses); i++ {
		cls := classByID(cur, liveClasses)
		if cls == nil {
			return errors.Wrapf(ErrFlowIDUnreachable, "flowid %s does not reference a class under %s",
				flowID, parent)
		}
		if cls.Attrs().Parent.Equals(parent) {
			return nil
		}
		cur = cls.Attrs().Parent
	}
	return errors.Wrapf(ErrFlowIDUnreachable, "class tree under %s does not terminate", parent)
}

// parentExists returns true if handle names a live managed qdisc or a live
// classid, the two attachment points classes and filters may use
func parentExists(handle tctypes.Handle, liveQDiscs []tctypes.QDisc, liveClasses []tctypes.Class) bool {
	if qdiscExists(handle, liveQDiscs) {
		return true
	}
	return classByID(handle, liveClasses) != nil
}

// qdiscExists returns true if a managed (non kernel default) qdisc with the
// given handle is present in liveQDiscs
func qdiscExists(handle tctypes.Handle, liveQDiscs []tctypes.QDisc) bool {
	for _, q := range liveQDiscs {
		if q.Type().IsKernelDefault() {
			continue
		}
		if q.Attrs().Handle.Equals(handle) {
			return true
		}
	}
	return false
}

// classByID returns the live class whose classid equals h, or nil
func classByID(h tctypes.Handle, liveClasses []tctypes.Class) tctypes.Class {
	for _, c := range liveClasses {
		if c.Attrs().ClassID.Equals(h) {
			return c
		}
	}
	return nil
}
