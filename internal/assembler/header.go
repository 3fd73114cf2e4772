package assembler

import (
	"strings"
	"text/template"
)

// HeaderInfo holds the static provenance text written into every header.
type HeaderInfo struct {
	Description  string
	SharedGlob   string
	SourceRoot   string
	BuildCommand string
	Target       string
}

// DefaultHeaderInfo returns the provenance text for the standard layout.
func DefaultHeaderInfo() HeaderInfo {
	return HeaderInfo{
		Description:  "Standalone script. Do not edit directly - edit source files in src/ folder.",
		SharedGlob:   "src/common/*.gs",
		SourceRoot:   "src/",
		BuildCommand: "stitch build",
		Target:       "Google Apps Script",
	}
}

type headerData struct {
	HeaderInfo
	Name       string
	Version    string
	Built      string
	VariantSrc string
	OutputDir  string
}

// headerText keeps the blank comment lines as " * " with a trailing space.
const headerText = "/**\n" +
	" * @name {{.Name}}\n" +
	" * @version {{.Version}}\n" +
	" * @built {{.Built}}\n" +
	" * @description {{.Description}}\n" +
	" * \n" +
	" * This file is auto-generated from:\n" +
	" * - Common utilities ({{.SharedGlob}})\n" +
	" * - Workbook-specific code ({{.VariantSrc}})\n" +
	" * \n" +
	" * To make changes:\n" +
	" * 1. Edit source files in {{.SourceRoot}} folder\n" +
	" * 2. Run: {{.BuildCommand}}\n" +
	" * 3. Copy the generated file from {{.OutputDir}} folder to {{.Target}}\n" +
	" */\n\n"

var headerTemplate = template.Must(template.New("header").Parse(headerText))

// renderHeader produces the comment block that opens every document.
func renderHeader(v Variant, job *Job) (string, error) {
	var b strings.Builder
	err := headerTemplate.Execute(&b, headerData{
		HeaderInfo: job.Header,
		Name:       v.Name,
		Version:    job.Metadata.Version,
		Built:      job.Metadata.BuiltAt(),
		VariantSrc: joinSlash(job.VariantsDir, v.ID),
		OutputDir:  dirLabel(job.OutputDir),
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

func joinSlash(dir, name string) string {
	dir = strings.TrimSuffix(dir, "/")
	if dir == "" || dir == "." {
		return name
	}
	return dir + "/" + name
}

// dirLabel renders a directory the way the header refers to folders ("dist/").
func dirLabel(dir string) string {
	dir = strings.TrimPrefix(dir, "./")
	if dir == "" {
		return "./"
	}
	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	return dir
}
