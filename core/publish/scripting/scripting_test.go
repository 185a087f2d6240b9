package scripting

import (
	"context"
	"strings"
	"testing"
)

func TestGenerateScripts(t *testing.T) {
	g := TemplateGenerator{}
	ctx := context.Background()
	for _, kind := range []Kind{KindInstall, KindUninstall, KindDetection} {
		body, err := g.GenerateScript(ctx, "Acme.Tool", "Acme Tool", kind)
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		if !strings.Contains(body, "Acme.Tool") {
			t.Fatalf("%s script does not reference the package id:\n%s", kind, body)
		}
	}
}

func TestGenerateScriptUnknownKind(t *testing.T) {
	if _, err := (TemplateGenerator{}).GenerateScript(context.Background(), "Acme.Tool", "Acme Tool", Kind("Repair")); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestGenerateScriptRequiresPackageID(t *testing.T) {
	if _, err := (TemplateGenerator{}).GenerateScript(context.Background(), "", "Acme Tool", KindInstall); err == nil {
		t.Fatalf("expected error for empty package id")
	}
}
