package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"finsight/internal/auth"
	"finsight/internal/config"

	"github.com/spf13/afero"
)

func credentialStore() *auth.Store {
	return auth.NewStore(afero.NewOsFs(), config.HomeDir())
}

func loginMain(root rootArgs, args []string) {
	store := credentialStore()
	if len(args) > 0 && args[0] == "status" {
		cfg, err := loadConfig(root, "", nil)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		fmt.Println(loginStatus(cfg))
		return
	}

	fs := flag.NewFlagSet("login", flag.ExitOnError)
	var withAPIKey bool
	fs.BoolVar(&withAPIKey, "with-api-key", false, "Read the API key from stdin")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse login args: %v", err)
	}

	key := ""
	if withAPIKey {
		key = readKey(os.Stdin)
	} else {
		key = firstNonEmpty(os.Getenv("OPENAI_API_KEY"), os.Getenv("ANTHROPIC_AUTH_TOKEN"))
	}
	if key == "" {
		log.Fatalf("no API key given; pipe one in, e.g. `printenv OPENAI_API_KEY | finsight login --with-api-key`")
	}
	if err := store.SaveAPIKey(key); err != nil {
		log.Fatalf("failed to save API key: %v", err)
	}
	fmt.Printf("API key saved to %s.\n", store.Path())
}

func logoutMain(args []string) {
	_ = args
	if err := credentialStore().Clear(); err != nil {
		log.Fatalf("failed to clear stored API key: %v", err)
	}
	fmt.Println("Logged out and cleared stored API key.")
}

func loginStatus(cfg config.Config) string {
	if strings.TrimSpace(cfg.Token) == "" {
		return "not logged in"
	}
	return fmt.Sprintf("API key configured (%s..., provider=%s)", prefix(cfg.Token, 6), cfg.NormalizedProvider())
}

// applyStoredKey 在配置与环境变量都没有 token 时使用 finsight login 保存的 key。
func applyStoredKey(cfg config.Config, store *auth.Store) config.Config {
	if strings.TrimSpace(cfg.Token) != "" || store == nil {
		return cfg
	}
	key, err := store.LoadAPIKey()
	if err != nil {
		log.Warnf("ignore stored API key: %v", err)
		return cfg
	}
	cfg.Token = key
	return cfg
}

func readKey(r io.Reader) string {
	scanner := bufio.NewScanner(r)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text())
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
