package types

const (
	QDiscHTBType     QDiscType = "htb"
	QDiscIngressType QDiscType = "ingress"

	// Disciplines the kernel installs on its own when nothing was configured
	QDiscPfifoFastType QDiscType = "pfifo_fast"
	QDiscNoqueueType   QDiscType = "noqueue"
	QDiscMqType        QDiscType = "mq"
)

// IngressQDiscHandle is the fixed handle the kernel assigns to ingress qdiscs
var IngressQDiscHandle = NewHandle(0xffff, 0)

// QDiscType is the type of qdisc
type QDiscType string

// IsKernelDefault returns true for qdisc types the kernel attaches by itself
// to an otherwise unconfigured device
func (qt QDiscType) IsKernelDefault() bool {
	switch qt {
	case QDiscPfifoFastType, QDiscNoqueueType, QDiscMqType:
		return true
	}
	return false
}

// QDiscAttrs holds QDisc object attributes
type QDiscAttrs struct {
	Handle Handle
	// Parent is the attachment point of the qdisc. nil means attached at root.
	Parent *Handle
}

// NewQDiscAttrs creates new QDiscAttrs instance
func NewQDiscAttrs(handle Handle, parent *Handle) *QDiscAttrs {
	return &QDiscAttrs{
		Handle: handle,
		Parent: parent,
	}
}

// GenCmdLineArgs implements CmdLineGenerator interface. It renders the
// attachment point selector ("root" or "parent X:Y") which identifies a
// qdisc to tc on delete.
func (qa *QDiscAttrs) GenCmdLineArgs() []string {
	if qa.Parent == nil {
		return []string{"root"}
	}
	return []string{"parent", qa.Parent.String()}
}

// Equals compares this QDiscAttrs with other, returns true if they are equal or false otherwise
func (qa *QDiscAttrs) Equals(other *QDiscAttrs) bool {
	if qa == other {
		return true
	}
	if qa == nil || other == nil {
		return false
	}
	if !qa.Handle.Equals(other.Handle) {
		return false
	}
	return compare(qa.Parent, other.Parent, nil)
}

// QDisc is an interface which represents a TC qdisc object
type QDisc interface {
	// Attrs returns QDiscAttrs for a qdisc
	Attrs() *QDiscAttrs
	// Type returns the QDisc type
	Type() QDiscType
	// Equals compares this QDisc with other, returns true if they are equal or false otherwise
	Equals(other QDisc) bool

	// Driver Specific related Interfaces
	CmdLineGenerator
}

// GenericQDisc is a generic qdisc of an arbitrary type
type GenericQDisc struct {
	QDiscAttrs
	QdiscType QDiscType
}

// Attrs implements QDisc interface
func (g *GenericQDisc) Attrs() *QDiscAttrs {
	return &g.QDiscAttrs
}

// Type implements QDisc interface
func (g *GenericQDisc) Type() QDiscType {
	return g.QdiscType
}

// Equals implements QDisc interface. Ingress qdiscs compare by type alone
// since a device can hold at most one, with a kernel fixed handle.
func (g *GenericQDisc) Equals(other QDisc) bool {
	if g.QdiscType != other.Type() {
		return false
	}
	if g.QdiscType == QDiscIngressType {
		return true
	}
	return g.Handle.Equals(other.Attrs().Handle) && compare(g.Parent, other.Attrs().Parent, nil)
}

// GenCmdLineArgs implements CmdLineGenerator interface
func (g *GenericQDisc) GenCmdLineArgs() []string {
	if g.QdiscType == QDiscIngressType {
		// ingress qdiscs have a kernel fixed handle and take no parameters
		return []string{string(QDiscIngressType)}
	}
	args := g.QDiscAttrs.GenCmdLineArgs()
	args = append(args, "handle", g.Handle.String())
	args = append(args, string(g.QdiscType))
	return args
}

// NewGenericQdisc creates a new Generic QDisc object
func NewGenericQdisc(qDiscAttrs *QDiscAttrs, qType QDiscType) *GenericQDisc {
	return &GenericQDisc{
		QDiscAttrs: *qDiscAttrs,
		QdiscType:  qType,
	}
}

// Builders

// NewQDiscAttrsBuilder returns a new QDiscAttrsBuilder
func NewQDiscAttrsBuilder() *QDiscAttrsBuilder {
	return &QDiscAttrsBuilder{}
}

// QDiscAttrsBuilder is a QDiscAttrs builder
type QDiscAttrsBuilder struct {
	qDiscAttrs QDiscAttrs
}

// WithHandle adds Handle to QDiscAttrsBuilder
func (qb *QDiscAttrsBuilder) WithHandle(h Handle) *QDiscAttrsBuilder {
	qb.qDiscAttrs.Handle = h
	return qb
}

// WithParent adds Parent to QDiscAttrsBuilder
func (qb *QDiscAttrsBuilder) WithParent(p Handle) *QDiscAttrsBuilder {
	qb.qDiscAttrs.Parent = &p
	return qb
}

// Build builds and returns a new QDiscAttrs instance
// Note: calling Build() multiple times will not return a completely
// new object on each call. that is, pointer/slice/map types will not be deep copied.
// to create several objects, different builders should be used.
func (qb *QDiscAttrsBuilder) Build() *QDiscAttrs {
	return NewQDiscAttrs(qb.qDiscAttrs.Handle, qb.qDiscAttrs.Parent)
}

// NewHTBQDiscBuilder returns a new HTBQDiscBuilder
func NewHTBQDiscBuilder() *HTBQDiscBuilder {
	return &HTBQDiscBuilder{qDiscAttrsBuilder: NewQDiscAttrsBuilder(), qDiscType: QDiscHTBType}
}

// HTBQDiscBuilder is a builder of root htb GenericQDisc objects
type HTBQDiscBuilder struct {
	qDiscAttrsBuilder *QDiscAttrsBuilder
	qDiscType         QDiscType
}

// WithHandle adds Handle to HTBQDiscBuilder
func (hqb *HTBQDiscBuilder) WithHandle(h Handle) *HTBQDiscBuilder {
	hqb.qDiscAttrsBuilder.WithHandle(h)
	return hqb
}

// Build builds and returns a new GenericQDisc instance of type QDiscHTBType
// Note: calling Build() multiple times will not return a completely
// new object on each call. that is, pointer/slice/map types will not be deep copied.
// to create several objects, different builders should be used.
func (hqb *HTBQDiscBuilder) Build() *GenericQDisc {
	attrs := hqb.qDiscAttrsBuilder.Build()
	return NewGenericQdisc(attrs, hqb.qDiscType)
}

// NewIngressQDiscBuilder returns a new IngressQDiscBuilder
func NewIngressQDiscBuilder() *IngressQDiscBuilder {
	return &IngressQDiscBuilder{
		qDiscAttrsBuilder: NewQDiscAttrsBuilder().WithHandle(IngressQDiscHandle),
		qDiscType:         QDiscIngressType,
	}
}

// IngressQDiscBuilder is an IngressQDisc builder
type IngressQDiscBuilder struct {
	qDiscAttrsBuilder *QDiscAttrsBuilder
	qDiscType         QDiscType
}

// Build builds and returns a new GenericQDisc instance of type QDiscIngressType
// Note: calling Build() multiple times will not return a completely
// new object on each call. that is, pointer/slice/map types will not be deep copied.
// to create several objects, different builders should be used.
func (iqb *IngressQDiscBuilder) Build() *GenericQDisc {
	attrs := iqb.qDiscAttrsBuilder.Build()
	return NewGenericQdisc(attrs, iqb.qDiscType)
}
