package internal

import (
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if !cfg.Scroll.Enabled {
		t.Error("scroll sync should be on by default")
	}
}

func TestPreviewConfig_UnknownStyle(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Preview.HighlightStyle = "no-such-style"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown highlight style should fail validation")
	}
}

func TestWorkspaceConfig_Extensions(t *testing.T) {
	cfg := WorkspaceConfig{Path: "./p", Extensions: []string{".md", "txt"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("extension without a dot should fail validation")
	}
	cfg.Extensions = []string{".md", ".txt"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("dotted extensions should pass: %v", err)
	}
}

func TestWorkspaceConfig_PathRequired(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Workspace.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty workspace path should fail validation")
	}
}

func TestExportConfig_PageSize(t *testing.T) {
	cfg := ExportConfig{FontSize: 11, PageSize: "Tabloid"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown page size should fail validation")
	}
	cfg.PageSize = "Letter"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Letter should pass: %v", err)
	}
}

func TestScrollConfig_NegativeTolerance(t *testing.T) {
	cfg := ScrollConfig{Enabled: true, TolerancePx: -1}
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative tolerance should fail validation")
	}
}
