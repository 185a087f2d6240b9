// Package scripting generates the install, uninstall, and detection script
// bodies persisted alongside each deployment.
package scripting

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
)

// Kind selects which script body to generate.
type Kind string

const (
	KindInstall   Kind = "Install"
	KindUninstall Kind = "Uninstall"
	KindDetection Kind = "Detection"
)

// Generator produces script text for a package.
type Generator interface {
	GenerateScript(ctx context.Context, packageID, displayName string, kind Kind) (string, error)
}

type scriptData struct {
	PackageID   string
	DisplayName string
}

var scriptTemplates = map[Kind]*template.Template{
	KindInstall: template.Must(template.New("install").Parse(
		`# Install {{.DisplayName}}
$ErrorActionPreference = "Stop"
choco install {{.PackageID}} -y --no-progress
exit $LASTEXITCODE
`)),
	KindUninstall: template.Must(template.New("uninstall").Parse(
		`# Uninstall {{.DisplayName}}
$ErrorActionPreference = "Stop"
choco uninstall {{.PackageID}} -y --no-progress
exit $LASTEXITCODE
`)),
	KindDetection: template.Must(template.New("detection").Parse(
		`# Detect {{.DisplayName}}
$installed = choco list --local-only --exact {{.PackageID}} --limit-output
if ($installed) { Write-Output "detected"; exit 0 }
exit 1
`)),
}

// TemplateGenerator renders script bodies from built-in templates.
type TemplateGenerator struct{}

func (TemplateGenerator) GenerateScript(ctx context.Context, packageID, displayName string, kind Kind) (string, error) {
	tmpl, ok := scriptTemplates[kind]
	if !ok {
		return "", fmt.Errorf("unknown script kind %q", kind)
	}
	if packageID == "" {
		return "", fmt.Errorf("package id required")
	}
	var b bytes.Buffer
	if err := tmpl.Execute(&b, scriptData{PackageID: packageID, DisplayName: displayName}); err != nil {
		return "", fmt.Errorf("render %s script: %w", kind, err)
	}
	return b.String(), nil
}
