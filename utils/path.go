package utils

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// AsmExtension is the file extension of assembly inputs.
const AsmExtension = ".jasm"

// InputFiles returns the assembly files named by the non-flag arguments.
// Directories are searched recursively. With no arguments the current
// directory is searched.
func InputFiles() (files []string) {
	args := flag.Args()
	if len(args) == 0 {
		args = []string{"."}
	}
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			log.Fatalln(err)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		filepath.WalkDir(arg, func(path string, d os.DirEntry, err error) error {
			if err == nil && !d.IsDir() && strings.HasSuffix(path, AsmExtension) {
				files = append(files, path)
			}
			return err
		})
	}
	sort.Strings(files)
	return
}

// OutputPath replaces the extension of the input file.
func OutputPath(input, suffix string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + suffix
}
