package stealth

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
)

//go:embed js/*.js
var embeddedJS embed.FS

// TemplateSource returns the raw text of an evasion template by name.
type TemplateSource interface {
	Template(name string) (string, error)
}

// FSTemplates loads "<name>.js" from a file system.
type FSTemplates struct {
	fsys fs.FS
}

func NewFSTemplates(fsys fs.FS) FSTemplates {
	return FSTemplates{fsys: fsys}
}

// DirTemplates reads templates from a directory on disk, for swapping in
// newer payloads without rebuilding.
func DirTemplates(dir string) FSTemplates {
	return NewFSTemplates(os.DirFS(dir))
}

// Embedded returns the templates compiled into the binary.
func Embedded() FSTemplates {
	sub, err := fs.Sub(embeddedJS, "js")
	if err != nil {
		// "js" is a valid static path; fs.Sub only fails on invalid names.
		panic(err)
	}
	return NewFSTemplates(sub)
}

func (t FSTemplates) Template(name string) (string, error) {
	b, err := fs.ReadFile(t.fsys, name+".js")
	if err != nil {
		return "", fmt.Errorf("read template %q: %w", name, err)
	}
	return string(b), nil
}
