package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"finsight/internal/config"

	"github.com/pelletier/go-toml/v2"
)

func configMain(root rootArgs, args []string) {
	if err := runConfig(root, args, os.Stdout); err != nil {
		log.Fatalf("config: %v", err)
	}
}

// runConfig 处理 finsight config path|show|set key=value...。
func runConfig(root rootArgs, args []string, out io.Writer) error {
	action := "show"
	if len(args) > 0 {
		action = args[0]
		args = args[1:]
	}
	path := root.cfgPath
	if path == "" {
		path = config.DefaultPath()
	}
	switch action {
	case "path":
		fmt.Fprintln(out, path)
		return nil
	case "show":
		cfg, err := loadConfig(root, "", nil)
		if err != nil {
			return err
		}
		data, err := toml.Marshal(cfg.Redacted())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "# effective configuration (file %s, environment and -c applied)\n%s", path, data)
		return nil
	case "set":
		cfg, err := config.Set(path, args)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "updated %d key(s) in %s\n", len(args), cfg.Source)
		return nil
	default:
		return errors.New("usage: finsight config [path|show|set key=value ...]")
	}
}
