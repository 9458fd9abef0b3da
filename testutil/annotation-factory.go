package testutil

import (
	"fmt"
	"strconv"
	"strings"
)

var (
	id_FALSE_NEGATIVE = "fn"
	id_FAILS          = "fails"
	id_REACHABLE      = "reachable"
	id_UNREACHABLE    = "unreachable"
	id_TARGETS        = "targets"
	id_ORIGINS        = "origins"
	id_TOP            = "top"
	id_VAR            = "var"
	id_STACK_SIZE     = "stack"
	id_HANDLER        = "handler"
	id_SUBROUTINE     = "subroutine"
	id_IN_SUBROUTINE  = "in-subroutine"
)

type annFactory struct{}

// Factory for creating annotation strings. Interpolate results with
// assembly source code. Wrap multiple factory calls in the At function to
// concatenate multiple annotations on the same line and prefix with "; ".
var Ann = annFactory{}

// At concatenates annotations into a trailing comment.
func At(anns ...string) string {
	strs := make([]string, len(anns))
	for i, a := range anns {
		strs[i] = "@" + a
	}
	return "; " + strings.Join(strs, " ")
}

func offsetsArgs(id string, offsets []int) string {
	strs := make([]string, len(offsets))
	for i, o := range offsets {
		strs[i] = strconv.Itoa(o)
	}
	return id + "(" + strings.Join(strs, ", ") + ")"
}

// False negative tag.
func (annFactory) FalseNegative() string { return id_FALSE_NEGATIVE }

// Fails expects the evaluation of the method to fail with an error
// containing the given text.
func (annFactory) Fails(contains string) string {
	return id_FAILS + "(" + strconv.Quote(contains) + ")"
}

func (annFactory) Reachable() string   { return id_REACHABLE }
func (annFactory) Unreachable() string { return id_UNREACHABLE }

// Targets expects the branch targets of the instruction.
func (annFactory) Targets(offsets ...int) string { return offsetsArgs(id_TARGETS, offsets) }

// Origins expects the offsets of the branches to the instruction.
func (annFactory) Origins(offsets ...int) string { return offsetsArgs(id_ORIGINS, offsets) }

// Top expects the printed value on top of the stack after the
// instruction, and optionally its producers.
func (annFactory) Top(value string, producers ...int) string {
	str := id_TOP + "(" + strconv.Quote(value)
	for _, p := range producers {
		str += ", " + strconv.Itoa(p)
	}
	return str + ")"
}

// Var expects the printed value of a variable after the instruction.
func (annFactory) Var(index int, value string) string {
	return fmt.Sprintf("%s(%d, %q)", id_VAR, index, value)
}

func (annFactory) StackSize(n int) string { return fmt.Sprintf("%s(%d)", id_STACK_SIZE, n) }
func (annFactory) Handler() string        { return id_HANDLER }

// Subroutine expects a subroutine to start at the instruction and end at
// the given offset.
func (annFactory) Subroutine(end int, returning bool) string {
	if returning {
		return fmt.Sprintf("%s(%d)", id_SUBROUTINE, end)
	}
	return fmt.Sprintf("%s(%d, exits)", id_SUBROUTINE, end)
}

func (annFactory) InSubroutine(inside bool) string {
	return fmt.Sprintf("%s(%t)", id_IN_SUBROUTINE, inside)
}

func (n NotesManager) CreateAnnotation(note *Note) (Annotation, error) {
	basic := basicAnnotation{note, n}
	args := note.Args
	arity := func(min, max int) error {
		if len(args) < min || (max >= 0 && len(args) > max) {
			return fmt.Errorf("wrong number of arguments to %s", note)
		}
		return nil
	}

	switch note.Name {
	case id_FALSE_NEGATIVE:
		return AnnFalseNegative{basic}, arity(0, 0)

	case id_FAILS:
		if err := arity(0, 1); err != nil {
			return nil, err
		}
		ann := AnnFails{basicAnnotation: basic}
		if len(args) == 1 {
			ann.contains = args[0]
		}
		return ann, nil

	case id_REACHABLE, id_UNREACHABLE:
		return AnnReachable{basic, note.Name == id_REACHABLE}, arity(0, 0)

	case id_TARGETS, id_ORIGINS:
		offsets, err := atoiAll(args)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", note, err)
		}
		return AnnOffsets{basic, offsets, note.Name == id_ORIGINS}, nil

	case id_TOP:
		if err := arity(1, -1); err != nil {
			return nil, err
		}
		producers, err := atoiAll(args[1:])
		if err != nil {
			return nil, fmt.Errorf("%s: %v", note, err)
		}
		if len(producers) == 0 {
			producers = nil
		}
		return AnnTop{basic, args[0], producers}, nil

	case id_VAR:
		if err := arity(2, 2); err != nil {
			return nil, err
		}
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %v", note, err)
		}
		return AnnVar{basic, index, args[1]}, nil

	case id_STACK_SIZE:
		if err := arity(1, 1); err != nil {
			return nil, err
		}
		size, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %v", note, err)
		}
		return AnnStackSize{basic, size}, nil

	case id_HANDLER:
		return AnnHandler{basic}, arity(0, 0)

	case id_SUBROUTINE:
		if err := arity(1, 2); err != nil {
			return nil, err
		}
		end, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %v", note, err)
		}
		returning := true
		if len(args) == 2 {
			if args[1] != "exits" {
				return nil, fmt.Errorf("%s: unknown argument %s", note, args[1])
			}
			returning = false
		}
		return AnnSubroutine{basic, end, returning}, nil

	case id_IN_SUBROUTINE:
		inside := true
		if len(args) == 1 {
			var err error
			if inside, err = strconv.ParseBool(args[0]); err != nil {
				return nil, fmt.Errorf("%s: %v", note, err)
			}
		}
		return AnnInSubroutine{basic, inside}, arity(0, 1)
	}
	return nil, fmt.Errorf("unknown annotation %s", note)
}
