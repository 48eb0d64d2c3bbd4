package main

import (
	"flag"
	"log"
	"os"

	"github.com/tech-paws/vm/internal/config"
)

func defaultPath(kind string) string {
	switch kind {
	case "vm":
		return "cmd/vmctl/config.toml"
	case "bench":
		return "cmd/vmctl/bench.toml"
	default:
		log.Fatalf("unknown kind: %s", kind)
		return ""
	}
}

func main() {
	kind := flag.String("kind", "vm", "config kind: vm|bench")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to per-kind cmd path)")
	force := flag.Bool("force", false, "overwrite existing config file")
	show := flag.Bool("print", false, "print the effective config after TPVM_* overrides")
	flag.Parse()

	if *validate || *show {
		path := *input
		if path == "" {
			path = defaultPath(*kind)
		}
		cfg, err := config.Load(path)
		if err != nil {
			log.Fatal(err)
		}
		if *show {
			out, err := config.Render(cfg)
			if err != nil {
				log.Fatal(err)
			}
			if _, err := os.Stdout.Write(out); err != nil {
				log.Fatal(err)
			}
			return
		}
		log.Printf("Validated %s config at %s", *kind, path)
		return
	}

	target := *output
	if target == "" {
		target = defaultPath(*kind)
	}
	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s config template to %s", *kind, target)
}
