package indenter

import (
	"fmt"
	"strings"
)

// Indenter builds nested multi-line strings. Each instance keeps its own
// buffer, so separate instances may be used concurrently.
type Indenter struct {
	buffer strings.Builder
	level  int
}

func Start(str string) *Indenter {
	i := &Indenter{}
	i.buffer.WriteString(str)
	return i
}

func (i *Indenter) indent() string {
	return strings.Repeat("  ", i.level)
}

type stringableString string

func (s stringableString) String() string {
	return string(s)
}

func (i *Indenter) NestStrings(strs ...string) *Indenter {
	return i.NestStringsSep("", strs...)
}

func (i *Indenter) NestStringsSep(sep string, strs ...string) *Indenter {
	stringers := make([]fmt.Stringer, len(strs))
	for i, v := range strs {
		stringers[i] = stringableString(v)
	}
	return i.NestSep(sep, stringers...)
}

func (i *Indenter) Nest(strs ...fmt.Stringer) *Indenter {
	return i.NestSep("", strs...)
}

func (i *Indenter) NestSep(sep string, strs ...fmt.Stringer) *Indenter {
	thunks := make([]func() string, len(strs))
	for j, str := range strs {
		thunks[j] = str.String
	}
	return i.NestThunkedSep(sep, thunks...)
}

func (i *Indenter) NestThunked(strs ...func() string) *Indenter {
	return i.NestThunkedSep("", strs...)
}

// NestThunkedSep places every string on its own line one level deeper.
// A single string is appended to the current line instead.
func (i *Indenter) NestThunkedSep(sep string, strs ...func() string) *Indenter {
	if len(strs) == 1 {
		i.buffer.WriteString(strs[0]())
		return i
	}

	i.level++
	for j, str := range strs {
		i.buffer.WriteString("\n" + i.indent() + str())
		if j < len(strs)-1 {
			i.buffer.WriteString(sep)
		}
	}
	i.level--
	i.buffer.WriteString("\n")
	return i
}

func (i *Indenter) End(str string) string {
	res := i.buffer.String()
	if strings.HasSuffix(res, "\n") {
		res += i.indent()
	}
	return res + str
}
