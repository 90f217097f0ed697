package tc

import (
	tctypes "github.com/k8snetworkplumbingwg/tc-shaper/pkg/tc/types"
)

// TC defines an interface to interact with Linux Traffic Control subsystem
// an implementation should be associated with a specific network interface (netdev).
type TC interface {
	// QDiscAdd adds the specified Qdisc
	QDiscAdd(qdisc tctypes.QDisc) error
	// QDiscDel deletes the specified Qdisc
	QDiscDel(qdisc tctypes.QDisc) error
	// QDiscList lists QDiscs
	QDiscList() ([]tctypes.QDisc, error)

	// ClassAdd adds the specified Class
	ClassAdd(class tctypes.Class) error
	// ClassChange changes the attributes of an existing Class in place
	ClassChange(class tctypes.Class) error
	// ClassDel deletes the Class identified by classAttrs
	ClassDel(classAttrs *tctypes.ClassAttrs) error
	// ClassList lists Classes
	ClassList() ([]tctypes.Class, error)

	// FilterAdd adds the specified Filter
	FilterAdd(filter tctypes.Filter) error
	// FilterDel deletes the Filter identified by filterAttrs
	FilterDel(filterAttrs *tctypes.FilterAttrs) error
	// FilterList lists Filters attached to the given parent
	FilterList(parent tctypes.Handle) ([]tctypes.Filter, error)
}
