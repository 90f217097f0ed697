package types

import (
	"fmt"
	"strconv"
)

const (
	// Values for FilterAttrs.Protocol
	FilterProtocolIP  FilterProtocol = "ip"
	FilterProtocolAll FilterProtocol = "all"

	// Filter kinds
	FilterKindU32    FilterKind = "u32"
	FilterKindCgroup FilterKind = "cgroup"

	// u32PortMask matches the full 16 bits of a port in a u32 dport match
	u32PortMask = "0xffff"
)

// FilterProtocol is the type of filter protocol
type FilterProtocol string

// FilterKind is the type of filter
type FilterKind string

// Filter represent a tc filter object
type Filter interface {
	// Attrs returns FilterAttrs
	Attrs() *FilterAttrs
	// Kind returns the filter kind
	Kind() FilterKind
	// Equals compares this Filter with other, returns true if they are equal or false otherwise
	Equals(other Filter) bool

	// Driver Specific related Interfaces
	CmdLineGenerator
}

// FilterAttrs holds filter object attributes common to all filter kinds.
// Parent, Priority and Kind together identify a filter on a device.
type FilterAttrs struct {
	Kind     FilterKind
	Protocol FilterProtocol
	Parent   Handle
	// Handle is the filter handle. Only cgroup filters carry one here; u32
	// filter handles are assigned by the kernel and are not part of identity.
	Handle   *Handle
	Priority uint16
}

// NewFilterAttrs creates new FilterAttrs instance
func NewFilterAttrs(
	kind FilterKind, protocol FilterProtocol, parent Handle, handle *Handle, priority uint16) *FilterAttrs {
	return &FilterAttrs{
		Kind:     kind,
		Protocol: protocol,
		Parent:   parent,
		Handle:   handle,
		Priority: priority,
	}
}

// GenCmdLineArgs implements CmdLineGenerator interface, it generates the needed tc command line args for FilterAttrs
func (fa *FilterAttrs) GenCmdLineArgs() []string {
	args := []string{"parent", fa.Parent.String()}

	if fa.Protocol != "" {
		args = append(args, "protocol", string(fa.Protocol))
	}

	if fa.Handle != nil {
		// tc prints and parses filter handles as plain hex numbers, not major:minor
		args = append(args, "handle", fmt.Sprintf("0x%x", fa.Handle.Major))
	}

	args = append(args, "prio", strconv.FormatUint(uint64(fa.Priority), 10))

	// must be last as next are filter kind specific params
	args = append(args, string(fa.Kind))

	return args
}

// Equals compares this FilterAttrs with other, returns true if they are equal or false otherwise
func (fa *FilterAttrs) Equals(other *FilterAttrs) bool {
	if fa == other {
		return true
	}

	if fa == nil || other == nil {
		return false
	}

	if fa.Kind != other.Kind {
		return false
	}
	if fa.Protocol != other.Protocol {
		return false
	}
	if !fa.Parent.Equals(other.Parent) {
		return false
	}
	if !compare(fa.Handle, other.Handle, nil) {
		return false
	}
	return fa.Priority == other.Priority
}

// U32Filter is a concrete implementation of Filter matching TCP/UDP
// destination ports with the u32 classifier
type U32Filter struct {
	FilterAttrs
	// DstPort is the destination port the filter matches, full 16 bit mask.
	// Live filters whose selector is not a dport match carry nil, which never
	// equals a configured port, port 0 included.
	DstPort *uint16
	// FlowID is the classid traffic matched by this filter is steered to
	FlowID Handle
}

// Attrs implements Filter interface, it returns FilterAttrs
func (f *U32Filter) Attrs() *FilterAttrs {
	return &f.FilterAttrs
}

// Kind implements Filter interface
func (f *U32Filter) Kind() FilterKind {
	return f.FilterAttrs.Kind
}

// Equals implements Filter interface
func (f *U32Filter) Equals(other Filter) bool {
	otherU32, ok := other.(*U32Filter)
	if !ok {
		return false
	}

	if !f.Attrs().Equals(other.Attrs()) {
		return false
	}

	if !compare(f.DstPort, otherU32.DstPort, nil) {
		return false
	}
	return f.FlowID.Equals(otherU32.FlowID)
}

// GenCmdLineArgs implements CmdLineGenerator interface, it generates the needed tc command line args for U32Filter
func (f *U32Filter) GenCmdLineArgs() []string {
	args := f.FilterAttrs.GenCmdLineArgs()
	if f.DstPort != nil {
		args = append(args,
			"match", "ip", "dport", strconv.FormatUint(uint64(*f.DstPort), 10), u32PortMask)
	}
	args = append(args, "flowid", f.FlowID.String())
	return args
}

// CgroupFilter is a concrete implementation of Filter classifying traffic by
// the net_cls classid of the originating cgroup. The target class is taken
// from the cgroup mark, so no flowid appears on the command line.
type CgroupFilter struct {
	FilterAttrs
	// FlowID optionally names the class this filter is expected to steer to.
	// It is validated against the class tree but never rendered or compared,
	// as the kernel derives the actual class from the cgroup mark and live
	// state does not report one.
	FlowID *Handle
}

// Attrs implements Filter interface, it returns FilterAttrs
func (f *CgroupFilter) Attrs() *FilterAttrs {
	return &f.FilterAttrs
}

// Kind implements Filter interface
func (f *CgroupFilter) Kind() FilterKind {
	return f.FilterAttrs.Kind
}

// Equals implements Filter interface
func (f *CgroupFilter) Equals(other Filter) bool {
	otherCgroup, ok := other.(*CgroupFilter)
	if !ok {
		return false
	}
	return f.Attrs().Equals(otherCgroup.Attrs())
}

// GenCmdLineArgs implements CmdLineGenerator interface, it generates the needed tc command line args for CgroupFilter
func (f *CgroupFilter) GenCmdLineArgs() []string {
	// the handle and kind rendered by FilterAttrs are the whole filter
	return f.FilterAttrs.GenCmdLineArgs()
}

// Builders

// NewFilterAttrsBuilder returns a new FilterAttrsBuilder
func NewFilterAttrsBuilder() *FilterAttrsBuilder {
	return &FilterAttrsBuilder{}
}

// FilterAttrsBuilder is a FilterAttrs builder
type FilterAttrsBuilder struct {
	filterAttrs FilterAttrs
}

// WithKind adds Kind to FilterAttrsBuilder
func (fb *FilterAttrsBuilder) WithKind(k FilterKind) *FilterAttrsBuilder {
	fb.filterAttrs.Kind = k
	return fb
}

// WithProtocol adds Protocol to FilterAttrsBuilder
func (fb *FilterAttrsBuilder) WithProtocol(p FilterProtocol) *FilterAttrsBuilder {
	fb.filterAttrs.Protocol = p
	return fb
}

// WithParent adds Parent to FilterAttrsBuilder
func (fb *FilterAttrsBuilder) WithParent(p Handle) *FilterAttrsBuilder {
	fb.filterAttrs.Parent = p
	return fb
}

// WithHandle adds Handle to FilterAttrsBuilder
func (fb *FilterAttrsBuilder) WithHandle(h Handle) *FilterAttrsBuilder {
	fb.filterAttrs.Handle = &h
	return fb
}

// WithPriority adds Priority to FilterAttrsBuilder
func (fb *FilterAttrsBuilder) WithPriority(p uint16) *FilterAttrsBuilder {
	fb.filterAttrs.Priority = p
	return fb
}

// Build builds and returns a new FilterAttrs instance
// Note: calling Build() multiple times will not return a completely
// new object on each call. that is, pointer/slice/map types will not be deep copied.
// to create several objects, different builders should be used.
func (fb *FilterAttrsBuilder) Build() *FilterAttrs {
	return NewFilterAttrs(fb.filterAttrs.Kind, fb.filterAttrs.Protocol, fb.filterAttrs.Parent,
		fb.filterAttrs.Handle, fb.filterAttrs.Priority)
}

// NewU32FilterBuilder returns a new instance of U32FilterBuilder. Kind and
// Protocol are preset for a u32 dport match.
func NewU32FilterBuilder() *U32FilterBuilder {
	return &U32FilterBuilder{
		filterAttrsBuilder: NewFilterAttrsBuilder().
			WithKind(FilterKindU32).
			WithProtocol(FilterProtocolIP),
	}
}

// U32FilterBuilder is a U32Filter builder
type U32FilterBuilder struct {
	filterAttrsBuilder *FilterAttrsBuilder
	filter             U32Filter
}

// WithProtocol adds Protocol to U32FilterBuilder
func (fb *U32FilterBuilder) WithProtocol(p FilterProtocol) *U32FilterBuilder {
	fb.filterAttrsBuilder.WithProtocol(p)
	return fb
}

// WithParent adds Parent to U32FilterBuilder
func (fb *U32FilterBuilder) WithParent(p Handle) *U32FilterBuilder {
	fb.filterAttrsBuilder.WithParent(p)
	return fb
}

// WithPriority adds Priority to U32FilterBuilder
func (fb *U32FilterBuilder) WithPriority(p uint16) *U32FilterBuilder {
	fb.filterAttrsBuilder.WithPriority(p)
	return fb
}

// WithDstPort adds DstPort to U32FilterBuilder
func (fb *U32FilterBuilder) WithDstPort(p uint16) *U32FilterBuilder {
	fb.filter.DstPort = &p
	return fb
}

// WithFlowID adds FlowID to U32FilterBuilder
func (fb *U32FilterBuilder) WithFlowID(f Handle) *U32FilterBuilder {
	fb.filter.FlowID = f
	return fb
}

// Build builds and returns a new U32Filter instance
// Note: calling Build() multiple times will not return a completely
// new object on each call. that is, pointer/slice/map types will not be deep copied.
// to create several objects, different builders should be used.
func (fb *U32FilterBuilder) Build() *U32Filter {
	return &U32Filter{
		FilterAttrs: *fb.filterAttrsBuilder.Build(),
		DstPort:     fb.filter.DstPort,
		FlowID:      fb.filter.FlowID,
	}
}

// NewCgroupFilterBuilder returns a new instance of CgroupFilterBuilder. Kind
// and Protocol are preset for a cgroup classifier.
func NewCgroupFilterBuilder() *CgroupFilterBuilder {
	return &CgroupFilterBuilder{
		filterAttrsBuilder: NewFilterAttrsBuilder().
			WithKind(FilterKindCgroup).
			WithProtocol(FilterProtocolIP),
	}
}

// CgroupFilterBuilder is a CgroupFilter builder
type CgroupFilterBuilder struct {
	filterAttrsBuilder *FilterAttrsBuilder
	filter             CgroupFilter
}

// WithProtocol adds Protocol to CgroupFilterBuilder
func (fb *CgroupFilterBuilder) WithProtocol(p FilterProtocol) *CgroupFilterBuilder {
	fb.filterAttrsBuilder.WithProtocol(p)
	return fb
}

// WithParent adds Parent to CgroupFilterBuilder
func (fb *CgroupFilterBuilder) WithParent(p Handle) *CgroupFilterBuilder {
	fb.filterAttrsBuilder.WithParent(p)
	return fb
}

// WithHandle adds Handle to CgroupFilterBuilder
func (fb *CgroupFilterBuilder) WithHandle(h Handle) *CgroupFilterBuilder {
	fb.filterAttrsBuilder.WithHandle(h)
	return fb
}

// WithPriority adds Priority to CgroupFilterBuilder
func (fb *CgroupFilterBuilder) WithPriority(p uint16) *CgroupFilterBuilder {
	fb.filterAttrsBuilder.WithPriority(p)
	return fb
}

// WithFlowID adds FlowID to CgroupFilterBuilder
func (fb *CgroupFilterBuilder) WithFlowID(f Handle) *CgroupFilterBuilder {
	fb.filter.FlowID = &f
	return fb
}

// Build builds and returns a new CgroupFilter instance
// Note: calling Build() multiple times will not return a completely
// new object on each call. that is, pointer/slice/map types will not be deep copied.
// to create several objects, different builders should be used.
func (fb *CgroupFilterBuilder) Build() *CgroupFilter {
	return &CgroupFilter{
		FilterAttrs: *fb.filterAttrsBuilder.Build(),
		FlowID:      fb.filter.FlowID,
	}
}
