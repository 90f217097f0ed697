package types

const (
	ClassHTBType ClassType = "htb"
)

// ClassType is the type of class
type ClassType string

// ClassAttrs holds Class object attributes
type ClassAttrs struct {
	// Parent is the handle of the qdisc or class this class lives under
	Parent Handle
	// ClassID is the handle identifying the class. Its major must match the
	// major of Parent.
	ClassID Handle
}

// NewClassAttrs creates new ClassAttrs instance
func NewClassAttrs(parent, classID Handle) *ClassAttrs {
	return &ClassAttrs{
		Parent:  parent,
		ClassID: classID,
	}
}

// GenCmdLineArgs implements CmdLineGenerator interface. It renders the
// identifying arguments of a class, which is all tc needs on delete.
func (ca *ClassAttrs) GenCmdLineArgs() []string {
	return []string{"parent", ca.Parent.String(), "classid", ca.ClassID.String()}
}

// Equals compares this ClassAttrs with other, returns true if they are equal or false otherwise
func (ca *ClassAttrs) Equals(other *ClassAttrs) bool {
	if ca == other {
		return true
	}
	if ca == nil || other == nil {
		return false
	}
	return ca.Parent.Equals(other.Parent) && ca.ClassID.Equals(other.ClassID)
}

// Class is an interface which represents a TC class object
type Class interface {
	// Attrs returns ClassAttrs for a class
	Attrs() *ClassAttrs
	// Type returns the Class type
	Type() ClassType
	// Equals compares this Class with other, returns true if they are equal or false otherwise
	Equals(other Class) bool

	// Driver Specific related Interfaces
	CmdLineGenerator
}

// HTBClass is a concrete implementation of Class for the htb discipline
type HTBClass struct {
	ClassAttrs
	// Rate is the guaranteed bandwidth of the class
	Rate *Rate
	// Ceil is the bandwidth the class may borrow up to. nil means equal to Rate.
	Ceil *Rate
}

// Attrs implements Class interface
func (c *HTBClass) Attrs() *ClassAttrs {
	return &c.ClassAttrs
}

// Type implements Class interface
func (c *HTBClass) Type() ClassType {
	return ClassHTBType
}

// EffectiveCeil returns Ceil, falling back to Rate when Ceil is unset
func (c *HTBClass) EffectiveCeil() *Rate {
	if c.Ceil != nil {
		return c.Ceil
	}
	return c.Rate
}

// Equals implements Class interface. Rates compare by magnitude so a desired
// "100kbit" matches a live "100Kbit".
func (c *HTBClass) Equals(other Class) bool {
	otherHTB, ok := other.(*HTBClass)
	if !ok {
		return false
	}
	if !c.Attrs().Equals(other.Attrs()) {
		return false
	}
	if !c.Rate.Equals(otherHTB.Rate) {
		return false
	}
	return c.EffectiveCeil().Equals(otherHTB.EffectiveCeil())
}

// GenCmdLineArgs implements CmdLineGenerator interface. ceil is always
// emitted; it defaults to rate when not set explicitly.
func (c *HTBClass) GenCmdLineArgs() []string {
	args := c.ClassAttrs.GenCmdLineArgs()
	args = append(args, string(ClassHTBType))
	if c.Rate != nil {
		args = append(args, "rate", c.Rate.String())
	}
	if ceil := c.EffectiveCeil(); ceil != nil {
		args = append(args, "ceil", ceil.String())
	}
	return args
}

// NewHTBClass creates a new HTBClass object
func NewHTBClass(classAttrs *ClassAttrs, rate, ceil *Rate) *HTBClass {
	return &HTBClass{
		ClassAttrs: *classAttrs,
		Rate:       rate,
		Ceil:       ceil,
	}
}

// Builders

// NewHTBClassBuilder returns a new HTBClassBuilder
func NewHTBClassBuilder() *HTBClassBuilder {
	return &HTBClassBuilder{}
}

// HTBClassBuilder is an HTBClass builder
type HTBClassBuilder struct {
	class HTBClass
}

// WithParent adds Parent to HTBClassBuilder
func (cb *HTBClassBuilder) WithParent(p Handle) *HTBClassBuilder {
	cb.class.ClassAttrs.Parent = p
	return cb
}

// WithClassID adds ClassID to HTBClassBuilder
func (cb *HTBClassBuilder) WithClassID(c Handle) *HTBClassBuilder {
	cb.class.ClassAttrs.ClassID = c
	return cb
}

// WithRate adds Rate to HTBClassBuilder
func (cb *HTBClassBuilder) WithRate(r *Rate) *HTBClassBuilder {
	cb.class.Rate = r
	return cb
}

// WithCeil adds Ceil to HTBClassBuilder
func (cb *HTBClassBuilder) WithCeil(c *Rate) *HTBClassBuilder {
	cb.class.Ceil = c
	return cb
}

// Build builds and returns a new HTBClass instance
// Note: calling Build() multiple times will not return a completely
// new object on each call. that is, pointer/slice/map types will not be deep copied.
// to create several objects, different builders should be used.
func (cb *HTBClassBuilder) Build() *HTBClass {
	return NewHTBClass(&cb.class.ClassAttrs, cb.class.Rate, cb.class.Ceil)
}
