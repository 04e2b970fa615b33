package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"palworld-save-edit/config"
	"palworld-save-edit/gvas"
	"palworld-save-edit/palworld"
	"palworld-save-edit/server"
	"palworld-save-edit/store"
	"palworld-save-edit/utils"
)

const usage = `usage: palsave <command> [args]

commands:
  players <file>          list players and their pals as JSON
  dump <file>             print the decoded property tree as JSON
  roundtrip <in> <out>    decode and re-encode a save
  serve <file>            serve the save over HTTP
  export <file> [db]      write players and pals to sqlite
`

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "palsave: "+format+"\n", args...)
	os.Exit(1)
}

func args(n int) []string {
	if len(os.Args) < n+2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	return os.Args[2 : n+2]
}

func baseName(filePath string) string {
	filename := filepath.Base(filePath)
	return filename[:len(filename)-len(filepath.Ext(filename))]
}

// open reads a save and writes the debug dumps the DEBUG_SAVE_* flags ask for.
func open(cfg *config.Config, filePath string) *gvas.Document {
	raw, err := palworld.ReadFile(filePath)
	if err != nil {
		fatal("%v", err)
	}
	name := baseName(filePath)
	if err := utils.SaveToFile(name, "gvas", "bin", raw); err != nil {
		log.Printf("[open] failed to dump %s: %v", name, err)
	}

	doc, err := gvas.Decode(raw, cfg.DecodeOptions()...)
	if err != nil {
		fatal("%s: %v", filePath, err)
	}
	for _, d := range doc.Diagnostics {
		log.Printf("[open] %v", d)
	}
	if err := utils.SaveToFile(name, "tree", "json", doc.Root); err != nil {
		log.Printf("[open] failed to dump %s: %v", name, err)
	}
	return doc
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal("%v", err)
	}
}

func project(cfg *config.Config, doc *gvas.Document) *palworld.Projection {
	projection, err := palworld.Project(doc, cfg.Entities, cfg.DecodeOptions()...)
	if err != nil {
		fatal("%v", err)
	}
	if len(projection.Skipped) > 0 {
		fmt.Fprintf(os.Stderr, "skipped %d entities\n", len(projection.Skipped))
	}
	return projection
}

func main() {
	if !config.DEBUG {
		log.SetOutput(io.Discard)
	}

	cfg, err := config.Load(config.CONFIG_PATH)
	if err != nil {
		fatal("%v", err)
	}
	kind, err := cfg.CompressionKind()
	if err != nil {
		fatal("%v", err)
	}

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "players":
		a := args(1)
		printJSON(project(cfg, open(cfg, a[0])).Players)

	case "dump":
		a := args(1)
		doc := open(cfg, a[0])
		printJSON(struct {
			Header gvas.Header `json:"header"`
			Root   *gvas.Tree  `json:"properties"`
		}{doc.Header, doc.Root})

	case "roundtrip":
		a := args(2)
		raw, err := palworld.ReadFile(a[0])
		if err != nil {
			fatal("%v", err)
		}
		doc, err := gvas.Decode(raw, cfg.DecodeOptions()...)
		if err != nil {
			fatal("%s: %v", a[0], err)
		}
		out, err := gvas.Encode(doc, cfg.DecodeOptions()...)
		if err != nil {
			fatal("%v", err)
		}
		if !bytes.Equal(out, raw) {
			fatal("re-encoded stream differs from %s", a[0])
		}
		if err := palworld.WriteDocument(a[1], doc, kind, cfg.DecodeOptions()...); err != nil {
			fatal("%v", err)
		}
		fmt.Printf("%s: %d bytes, %d raw structs, identical\n", a[1], len(raw), len(doc.Diagnostics))

	case "serve":
		a := args(1)
		session := palworld.NewSession(cfg.Entities, kind, cfg.DecodeOptions()...)
		if _, err := session.Load(a[0]); err != nil {
			fatal("%v", err)
		}
		fmt.Fprintf(os.Stderr, "listening on %s\n", cfg.Addr)
		if err := http.ListenAndServe(cfg.Addr, server.New(session)); err != nil {
			fatal("%v", err)
		}

	case "export":
		a := args(1)
		database := cfg.Database
		if len(os.Args) > 3 {
			database = os.Args[3]
		}
		projection := project(cfg, open(cfg, a[0]))
		if err := store.Export(database, filepath.Base(a[0]), projection); err != nil {
			fatal("%v", err)
		}
		fmt.Printf("exported %d players to %s\n", len(projection.Players), database)

	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}
