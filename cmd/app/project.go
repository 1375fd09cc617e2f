package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"tickvm/internal/cast"
	"tickvm/internal/lexer"
	"tickvm/internal/object"
	"tickvm/internal/parser"
	"tickvm/internal/runtime"
	"tickvm/internal/sequencer"
	"tickvm/internal/stage"
	"tickvm/internal/store"
	"tickvm/internal/util"
)

// populate declares every configured variable on its target.
func populate(world *stage.World, project util.Project) error {
	targets := []struct {
		sprite *stage.Sprite
		config util.TargetConfig
	}{{world.Stage(), project.Stage}}
	for _, sc := range project.Sprites {
		targets = append(targets, struct {
			sprite *stage.Sprite
			config util.TargetConfig
		}{world.AddSprite(sc.Name, sc.X, sc.Y), sc})
	}

	for _, t := range targets {
		for _, vc := range t.config.Variables {
			v, err := t.sprite.DeclareVariable(vc.Name, vc.Type, vc.Cloud)
			if err != nil {
				return err
			}
			if list := v.List(); list != nil {
				for _, item := range vc.Items {
					list.Value = append(list.Value, scriptValue(item))
				}
				continue
			}
			if vc.Value != nil {
				v.Value = scriptValue(vc.Value)
			}
		}
	}
	return nil
}

// scriptValue converts a decoded TOML value into a script value.
func scriptValue(v any) object.Value {
	switch v := v.(type) {
	case int64:
		return float64(v)
	case float64, string, bool:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// loadCloud copies stored values into the stage's cloud variables.
func loadCloud(ctx context.Context, world *stage.World, db *store.Store) error {
	values, err := db.All(ctx)
	if err != nil {
		return err
	}
	for _, v := range world.Stage().Variables() {
		if !v.IsCloud {
			continue
		}
		if stored, ok := values[v.Name]; ok {
			v.Value = stored
		}
	}
	return nil
}

// saveCloud writes the stage's cloud variables back in one transaction.
func saveCloud(ctx context.Context, world *stage.World, db *store.Store) error {
	values := map[string]string{}
	for _, v := range world.Stage().Variables() {
		if v.IsCloud {
			values[v.Name] = cast.String(v.Value)
		}
	}
	if len(values) == 0 {
		return nil
	}
	return db.SetAll(ctx, values)
}

// compileScripts assembles every configured script and registers it under
// its hat. Assembly errors have already been logged with their source.
func compileScripts(rt *runtime.Runtime, seq *sequencer.Sequencer, world *stage.World, project util.Project, config util.Configuration) error {
	targets := append([]util.TargetConfig{project.Stage}, project.Sprites...)
	for _, tc := range targets {
		name := tc.Name
		if name == "" {
			name = stage.StageName
		}
		target, ok := world.Target(name)
		if !ok {
			return fmt.Errorf("unknown target %q", name)
		}
		for i, sc := range tc.Scripts {
			id := name + "#" + strconv.Itoa(i)
			if config.DebugAST || config.DebugTxtAST {
				dumpAST(id, sc, config)
			}
			unit, err := rt.Assemble(sc.Source)
			if err != nil {
				return fmt.Errorf("script %s: %w", id, err)
			}
			fields := map[string]object.Value{}
			for k, v := range sc.Fields {
				fields[k] = v
			}
			seq.AddScript(&sequencer.Script{ID: id, Hat: sc.Hat, Fields: fields, Target: target, Unit: unit})
			slog.Debug("script compiled",
				slog.String("id", id),
				slog.String("hat", sc.Hat),
				slog.Any("primitives", unit.Primitives()))
		}
	}
	return nil
}

// dumpAST writes the parsed script next to its file, or into the project
// directory for inline sources. Scripts that do not parse are skipped since
// Assemble reports them.
func dumpAST(id string, sc util.ScriptConfig, config util.Configuration) {
	p := parser.New(lexer.New(sc.Source))
	script := p.ParseScript()
	if len(p.Errors()) > 0 {
		return
	}
	base := filepath.Join(config.RootPath, strings.ReplaceAll(id, "#", "_"))
	if sc.File != "" {
		base = sc.File
	}

	if config.DebugAST {
		astJSON, err := parser.RenderASTAsJSON(script)
		if err != nil {
			slog.Error("Failed to render AST as JSON", slog.Any("error", err))
		} else if err := os.WriteFile(base+".ast.json", []byte(astJSON), 0644); err != nil {
			slog.Error("Failed to write AST as JSON", slog.Any("error", err))
		}
	}
	if config.DebugTxtAST {
		if err := os.WriteFile(base+".ast.txt", []byte(parser.RenderASTAsText(script, 0)), 0644); err != nil {
			slog.Error("Failed to write AST as text", slog.Any("error", err))
		}
	}
}
