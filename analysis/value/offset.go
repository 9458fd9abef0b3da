package value

import (
	"sort"
	"strconv"
	"strings"

	"github.com/benbjohnson/immutable"

	"github.com/cs-au-dk/jpeval/utils"
)

// OriginKind classifies the provenance of an instruction offset.
type OriginKind uint8

const (
	OriginPlain OriginKind = iota
	OriginNewInstance
	OriginField
	OriginReturn
	OriginParameter
	OriginCast
	OriginExceptionHandler
)

var originSuffix = [...]string{"", "n", "f", "r", "p", "c", "h"}

func (k OriginKind) String() string {
	if int(k) < len(originSuffix) {
		return originSuffix[k]
	}
	return "?"
}

// Origin is an instruction offset tagged with a provenance kind. Method
// parameters use the parameter slot as offset.
type Origin struct {
	Offset int
	Kind   OriginKind
}

func (o Origin) Hash() uint32 {
	return utils.HashCombine(uint32(o.Offset), uint32(o.Kind))
}

func (o Origin) Equal(p Origin) bool { return o == p }

func (o Origin) String() string {
	return strconv.Itoa(o.Offset) + o.Kind.String()
}

func (o Origin) less(p Origin) bool {
	return o.Offset < p.Offset || (o.Offset == p.Offset && o.Kind < p.Kind)
}

// InstructionOffsetValue is an immutable set of origins. It represents
// return addresses on the stack, branch targets and origins, and the
// producers of stack and variable slots.
type InstructionOffsetValue struct {
	set *immutable.Map[Origin, struct{}]
}

// EmptyOffsets is the empty offset set.
var EmptyOffsets = InstructionOffsetValue{}

// NewOffsets creates a set of plain offsets.
func NewOffsets(offsets ...int) InstructionOffsetValue {
	s := EmptyOffsets
	for _, off := range offsets {
		s = s.Add(Origin{Offset: off})
	}
	return s
}

// NewOrigins creates a set of the given origins.
func NewOrigins(origins ...Origin) InstructionOffsetValue {
	s := EmptyOffsets
	for _, o := range origins {
		s = s.Add(o)
	}
	return s
}

func (InstructionOffsetValue) ComputationalType() ComputationalType { return TypeOffset }
func (InstructionOffsetValue) Precision() Precision                 { return Particular }
func (InstructionOffsetValue) IsCategory2() bool                    { return false }

// Len returns the number of origins in the set.
func (s InstructionOffsetValue) Len() int {
	if s.set == nil {
		return 0
	}
	return s.set.Len()
}

func (s InstructionOffsetValue) IsEmpty() bool { return s.Len() == 0 }

// Add returns s ∪ {o}.
func (s InstructionOffsetValue) Add(o Origin) InstructionOffsetValue {
	if s.set == nil {
		s.set = utils.NewImmMap[Origin, struct{}]()
	} else if _, found := s.set.Get(o); found {
		return s
	}
	return InstructionOffsetValue{s.set.Set(o, struct{}{})}
}

// Union returns s ∪ t.
func (s InstructionOffsetValue) Union(t InstructionOffsetValue) InstructionOffsetValue {
	if s.set == t.set {
		return s
	} else if t.Len() > s.Len() {
		s, t = t, s
	}
	t.ForEach(func(o Origin) { s = s.Add(o) })
	return s
}

// ContainsOrigin checks whether o ∈ s.
func (s InstructionOffsetValue) ContainsOrigin(o Origin) bool {
	if s.set == nil {
		return false
	}
	_, found := s.set.Get(o)
	return found
}

// Contains checks whether an origin with the given offset, of any kind,
// is in s.
func (s InstructionOffsetValue) Contains(offset int) bool {
	found := false
	s.ForEach(func(o Origin) { found = found || o.Offset == offset })
	return found
}

// ContainsKind checks whether any origin of the given kind is in s.
func (s InstructionOffsetValue) ContainsKind(kind OriginKind) bool {
	found := false
	s.ForEach(func(o Origin) { found = found || o.Kind == kind })
	return found
}

// ContainsAll checks whether t ⊆ s.
func (s InstructionOffsetValue) ContainsAll(t InstructionOffsetValue) bool {
	all := true
	t.ForEach(func(o Origin) { all = all && s.ContainsOrigin(o) })
	return all
}

// ForEach executes the provided procedure for each origin, in no
// particular order.
func (s InstructionOffsetValue) ForEach(do func(Origin)) {
	if s.set == nil {
		return
	}
	for iter := s.set.Iterator(); !iter.Done(); {
		o, _, _ := iter.Next()
		do(o)
	}
}

// Origins returns the origins sorted by offset, then kind.
func (s InstructionOffsetValue) Origins() []Origin {
	os := make([]Origin, 0, s.Len())
	s.ForEach(func(o Origin) { os = append(os, o) })
	sort.Slice(os, func(i, j int) bool { return os[i].less(os[j]) })
	return os
}

// Offsets returns the distinct offsets in ascending order.
func (s InstructionOffsetValue) Offsets() []int {
	offs := make([]int, 0, s.Len())
	for _, o := range s.Origins() {
		if len(offs) == 0 || offs[len(offs)-1] != o.Offset {
			offs = append(offs, o.Offset)
		}
	}
	return offs
}

// Single returns the only offset in s, if there is exactly one.
func (s InstructionOffsetValue) Single() (int, bool) {
	if offs := s.Offsets(); len(offs) == 1 {
		return offs[0], true
	}
	return 0, false
}

func (s InstructionOffsetValue) Equal(o Value) bool {
	t, ok := o.(InstructionOffsetValue)
	return ok && s.Len() == t.Len() && s.ContainsAll(t)
}

func (s InstructionOffsetValue) Generalize(o Value) Value {
	if t, ok := o.(InstructionOffsetValue); ok {
		return s.Union(t)
	}
	return TopValue{}
}

func (s InstructionOffsetValue) String() string {
	strs := make([]string, 0, s.Len())
	for _, o := range s.Origins() {
		strs = append(strs, o.String())
	}
	return offsetColor("{" + strings.Join(strs, ",") + "}")
}
