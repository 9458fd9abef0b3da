package value

// TopValue is the unusable value ⊤. It fills the second slot of category
// 2 values and slots whose contents conflict after a merge.
type TopValue struct{}

func (TopValue) ComputationalType() ComputationalType { return TypeTop }
func (TopValue) Precision() Precision                 { return Generic }
func (TopValue) IsCategory2() bool                    { return false }
func (TopValue) Generalize(Value) Value               { return TopValue{} }

func (TopValue) Equal(o Value) bool {
	_, ok := o.(TopValue)
	return ok
}

func (TopValue) String() string { return "⊤" }
