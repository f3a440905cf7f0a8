package main

import (
	"strings"
	"testing"

	"finsight/internal/auth"
	"finsight/internal/config"

	"github.com/spf13/afero"
)

func TestApplyStoredKeyOnlyFillsMissingToken(t *testing.T) {
	store := auth.NewStore(afero.NewMemMapFs(), "/home/u/.finsight")
	if err := store.SaveAPIKey("sk-stored"); err != nil {
		t.Fatalf("SaveAPIKey: %v", err)
	}

	cfg := config.Default()
	if got := applyStoredKey(cfg, store); got.Token != "sk-stored" {
		t.Fatalf("token = %q, want stored key", got.Token)
	}

	cfg.Token = "sk-env"
	if got := applyStoredKey(cfg, store); got.Token != "sk-env" {
		t.Fatalf("configured token must win, got %q", got.Token)
	}
}

func TestLoginStatus(t *testing.T) {
	cfg := config.Default()
	if got := loginStatus(cfg); got != "not logged in" {
		t.Fatalf("status = %q", got)
	}
	cfg.Token = "sk-abcdefgh"
	if got := loginStatus(cfg); got != "API key configured (sk-abc..., provider=openai)" {
		t.Fatalf("status = %q", got)
	}
}

func TestReadKeyTakesFirstLine(t *testing.T) {
	if got := readKey(strings.NewReader("  sk-piped \nextra\n")); got != "sk-piped" {
		t.Fatalf("readKey = %q", got)
	}
	if got := readKey(strings.NewReader("")); got != "" {
		t.Fatalf("readKey(empty) = %q", got)
	}
}
