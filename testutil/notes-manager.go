package testutil

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"testing"

	cf "github.com/cs-au-dk/jpeval/analysis/classfile"
	"github.com/cs-au-dk/jpeval/analysis/classfile/asm"
)

// Note is an annotation comment in an assembly source. Notes on lines
// without an instruction belong to the method of the next instruction and
// have offset -1.
type Note struct {
	Name   string
	Args   []string
	File   string
	Line   int
	Method *cf.Method
	Offset int
}

func (n *Note) Pos() string {
	return fmt.Sprintf("%s:%d", n.File, n.Line)
}

func (n *Note) String() string {
	str := "@" + n.Name
	if len(n.Args) > 0 {
		str += "(" + strings.Join(n.Args, ", ") + ")"
	}
	return str + " at " + n.Pos()
}

type NotesManager struct {
	anns  map[*Note]Annotation
	notes []*Note

	// Book-keeping of notes on the same line
	related map[*Note][]*Note
	listing *asm.Listing
}

var noteRegexp = regexp.MustCompile(`@([A-Za-z][\w-]*)(?:\(([^)]*)\))?`)

type location struct {
	method *cf.Method
	offset int
}

func MakeNotesManager(t *testing.T, file, src string, l *asm.Listing) (n NotesManager) {
	t.Helper()
	n.listing = l
	n.anns = make(map[*Note]Annotation)
	n.related = make(map[*Note][]*Note)

	at := map[int]location{}
	var instructionLines []int
	for m, lines := range l.Lines {
		for i, line := range lines {
			at[line] = location{m, m.Code[i].Offset()}
			instructionLines = append(instructionLines, line)
		}
	}
	sort.Ints(instructionLines)

	for i, text := range strings.Split(src, "\n") {
		line := i + 1
		comment := commentOf(text)
		if comment == "" {
			continue
		}

		loc, ok := at[line]
		if !ok {
			// Attach to the method of the next instruction.
			next := sort.SearchInts(instructionLines, line)
			if next == len(instructionLines) {
				continue
			}
			loc = location{at[instructionLines[next]].method, -1}
		}

		var onLine []*Note
		for _, match := range noteRegexp.FindAllStringSubmatch(comment, -1) {
			args, err := parseArgs(match[2])
			if err != nil {
				t.Fatalf("%s:%d: malformed note %s: %v", file, line, match[0], err)
			}
			note := &Note{match[1], args, file, line, loc.method, loc.offset}
			onLine = append(onLine, note)
		}
		for _, n1 := range onLine {
			for _, n2 := range onLine {
				if n1 != n2 {
					n.related[n1] = append(n.related[n1], n2)
				}
			}
		}
		n.notes = append(n.notes, onLine...)
	}

	for _, note := range n.notes {
		ann, err := n.CreateAnnotation(note)
		if err != nil {
			t.Fatalf("%s: %v", note.Pos(), err)
		}
		n.anns[note] = ann
	}
	return
}

// commentOf returns the text after the first comment character outside
// of a string literal.
func commentOf(line string) string {
	inString := false
	for i := 0; i < len(line); i++ {
		switch c := line[i]; {
		case c == '\\' && inString:
			i++
		case c == '"':
			inString = !inString
		case (c == ';' || c == '#') && !inString && (i == 0 || line[i-1] == ' ' || line[i-1] == '\t'):
			return line[i+1:]
		}
	}
	return ""
}

func parseArgs(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var args []string
	inString := false
	start := 0
	for i := 0; i <= len(s); i++ {
		if i < len(s) {
			switch c := s[i]; {
			case c == '\\' && inString:
				i++
				continue
			case c == '"':
				inString = !inString
				continue
			case c != ',' || inString:
				continue
			}
		}
		arg := strings.TrimSpace(s[start:i])
		if strings.HasPrefix(arg, `"`) {
			unquoted, err := strconv.Unquote(arg)
			if err != nil {
				return nil, err
			}
			arg = unquoted
		}
		args = append(args, arg)
		start = i + 1
	}
	return args, nil
}

func (n NotesManager) Program() *cf.Program {
	return n.listing.Program
}

// Methods returns the methods of the program in declaration order.
func (n NotesManager) Methods() []*cf.Method {
	return n.listing.Program.Methods()
}

func (n NotesManager) ForEachNote(do func(i int, note *Note)) {
	for i, note := range n.notes {
		do(i, note)
	}
}

func (n NotesManager) ForEachAnnotation(do func(a Annotation)) {
	for _, note := range n.notes {
		do(n.anns[note])
	}
}

func (n NotesManager) AnnotationOf(note *Note) Annotation {
	return n.anns[note]
}

func (n NotesManager) Notes() []*Note {
	return n.notes
}

// AnnotationsOf returns the annotations of a method, in source order.
func (n NotesManager) AnnotationsOf(m *cf.Method) annList {
	return n.FindAllAnnotations(func(a Annotation) bool {
		return a.Note().Method == m
	})
}

func (n NotesManager) FindNote(find func(*Note) bool) (*Note, bool) {
	for _, note := range n.notes {
		if find(note) {
			return note, true
		}
	}
	return nil, false
}

func (n NotesManager) FindAllAnnotations(pred func(Annotation) bool) annList {
	res := []Annotation{}
	for _, note := range n.notes {
		if ann := n.anns[note]; pred(ann) {
			res = append(res, ann)
		}
	}
	return res
}

func (n NotesManager) String() (str string) {
	str = "Note manager found the following notes:\n\n"
	for _, note := range n.notes {
		str += fmt.Sprintf("%s in %s at offset %d\n", note, note.Method, note.Offset)
	}
	return
}
