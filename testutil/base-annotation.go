package testutil

import (
	"fmt"
	"strings"
)

// basicAnnotation carries the note an annotation was created from.
type basicAnnotation struct {
	note *Note
	mgr  NotesManager
}

func (a basicAnnotation) Note() *Note           { return a.note }
func (a basicAnnotation) Name() string          { return a.note.Name }
func (a basicAnnotation) Manager() NotesManager { return a.mgr }

func (a basicAnnotation) String() string {
	return fmt.Sprintf("; @%s(%s) at %s", a.note.Name, strings.Join(a.note.Args, ", "), a.note.Pos())
}

// Related returns the annotations of the other notes on the same line, in
// source order.
func (a basicAnnotation) Related() annList {
	var anns annList
	for _, other := range a.mgr.related[a.note] {
		anns = append(anns, a.mgr.AnnotationOf(other))
	}
	return anns
}

// FalseNegative reports whether the line is tagged as a known imprecision.
func (a basicAnnotation) FalseNegative() bool {
	return a.Related().Exists(func(ann Annotation) bool {
		_, ok := ann.(AnnFalseNegative)
		return ok
	})
}

// instruction checks that the annotation is placed on an instruction of a
// method that was evaluated successfully.
func (a basicAnnotation) instruction(err error) error {
	if a.note.Offset < 0 {
		return fmt.Errorf("%s is not placed on an instruction", a.note)
	}
	if err != nil {
		return fmt.Errorf("%s: evaluation failed: %v", a.note, err)
	}
	return nil
}

type annList []Annotation

func (la annList) Exists(pred func(Annotation) bool) bool {
	for _, ann := range la {
		if pred(ann) {
			return true
		}
	}
	return false
}

func (la annList) ForEach(do func(Annotation)) {
	for _, ann := range la {
		do(ann)
	}
}
