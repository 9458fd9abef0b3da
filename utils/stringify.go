package utils

import (
	"fmt"

	"github.com/fatih/color"
)

var classColor = func(is ...interface{}) string {
	return CanColorize(color.New(color.FgBlue).SprintFunc())(is...)
}
var methodColor = func(is ...interface{}) string {
	return CanColorize(color.New(color.FgHiYellow).SprintFunc())(is...)
}
var offsetColor = func(is ...interface{}) string {
	return CanColorize(color.New(color.FgHiCyan).SprintFunc())(is...)
}
var insColor = func(is ...interface{}) string {
	return CanColorize(color.New(color.FgHiWhite, color.Faint).SprintFunc())(is...)
}

// MethodString renders a method signature as Class.nameDescriptor.
func MethodString(class, name, descriptor string) string {
	return classColor(class) + "." + methodColor(name) + descriptor
}

// OffsetString renders an instruction offset.
func OffsetString(offset int) string {
	return offsetColor(fmt.Sprintf("%4d", offset))
}

// InsString renders the textual form of an instruction.
func InsString(ins fmt.Stringer) string {
	return insColor(ins.String())
}
