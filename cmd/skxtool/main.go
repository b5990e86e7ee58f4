// skxtool exports mesh shape keys to .skx.json delta files and imports them
// back into mesh documents.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/shapekey-exporter/internal/command"
	"github.com/Faultbox/shapekey-exporter/internal/config"
	"github.com/Faultbox/shapekey-exporter/internal/logger"
	"github.com/Faultbox/shapekey-exporter/internal/mesh"
	"github.com/Faultbox/shapekey-exporter/internal/shapekey"
	"github.com/Faultbox/shapekey-exporter/pkg/skx"
)

// app holds what every subcommand needs.
type app struct {
	cfg      *config.Config
	fs       afero.Fs
	commands *command.Table
}

func main() {
	config.ParseFlags()
	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	osFs := afero.NewOsFs()
	cfg, err := config.Load(osFs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	a, err := newApp(cfg, osFs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cmdName, cmdArgs := args[0], args[1:]
	switch cmdName {
	case "export":
		err = a.cmdExport(cmdArgs)
	case "import":
		err = a.cmdImport(cmdArgs)
	case "inspect", "info":
		err = a.cmdInspect(cmdArgs)
	case "build":
		err = a.cmdBuild(cmdArgs)
	case "config":
		err = a.cmdConfig(cmdArgs)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmdName)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		logger.Error("command failed", zap.String("command", cmdName), zap.Error(err))
		for _, e := range multierr.Errors(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", e)
		}
		logger.Sync()
		os.Exit(exitCode(err))
	}
}

func newApp(cfg *config.Config, fs afero.Fs) (*app, error) {
	mode, err := cfg.Transfer.Mode()
	if err != nil {
		return nil, err
	}

	exporter := shapekey.NewExporter(fs, logger.Log.Named("export"), mode)
	importer := shapekey.NewImporter(fs, logger.Log.Named("import"), cfg.Transfer.BasisName)

	table := command.NewTable()
	command.Install(table, command.Commands(exporter, importer, command.Options{
		AppendExtension: cfg.Transfer.AppendExtension,
	}))

	return &app{cfg: cfg, fs: fs, commands: table}, nil
}

// exitCode is 2 when only some shape keys were skipped, 1 otherwise.
func exitCode(err error) int {
	if skx.IsSkipped(err) {
		return 2
	}
	return 1
}

func printUsage() {
	fmt.Println(`skxtool - shape key delta exporter

Usage:
  skxtool [flags] <command> [options]

Commands:
  export <mesh.skm.yaml> <out.skx.json>             Export shape key deltas
  import [-o out] <mesh.skm.yaml> <in.skx.json>     Import deltas into a mesh document
  inspect [-a] <file.skx.json>                      Show shape keys in a delta file
  build <out.skm.yaml> <basis.obj> [name=file.obj]  Build a mesh document from OBJ files
  config [path]                                     Write the effective config

Flags:
  -config <path>    Config file (default ./skxtool.yaml or user config dir)
  -debug            Enable debug logging
  -log-file <path>  Also log to a rotating file
  -basis <name>     Basis name for meshes without shape keys
  -no-ext           Do not append .skx.json to export paths

Examples:
  skxtool export face.skm.yaml face
  skxtool import -o head_morphs.skm.yaml head.skm.yaml face.skx.json
  skxtool build face.skm.yaml basis.obj smile=smile.obj frown=frown.obj`)
}

func (a *app) cmdExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: skxtool export <mesh.skm.yaml> <out.skx.json>")
		os.Exit(1)
	}

	obj, err := mesh.LoadDocument(a.fs, fs.Arg(0))
	if err != nil {
		return err
	}

	// A missing destination behaves like a cancelled file dialog.
	msg, err := a.commands.Run(command.ExportID, command.Invocation{Object: obj, Path: fs.Arg(1)})
	if err != nil {
		return err
	}
	if msg != "" {
		fmt.Println(msg)
	}
	return nil
}

func (a *app) cmdImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	output := fs.String("o", "", "Write the result to this mesh document instead of the input")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: skxtool import [-o out.skm.yaml] <mesh.skm.yaml> <in.skx.json>")
		os.Exit(1)
	}

	meshPath := fs.Arg(0)
	obj, err := mesh.LoadDocument(a.fs, meshPath)
	if err != nil {
		return err
	}

	msg, runErr := a.commands.Run(command.ImportID, command.Invocation{Object: obj, Path: fs.Arg(1)})
	if msg != "" {
		fmt.Println(msg)
	}
	// Skipped shape keys still leave a usable result; anything else does not.
	if runErr != nil && !skx.IsSkipped(runErr) {
		return runErr
	}
	for _, e := range multierr.Errors(runErr) {
		logger.Warn("shape key not imported", zap.String("mesh", meshPath), zap.Error(e))
	}

	outPath := meshPath
	if *output != "" {
		outPath = *output
	}
	if err := mesh.SaveDocument(a.fs, outPath, obj); err != nil {
		return multierr.Append(runErr, fmt.Errorf("saving %s: %w", outPath, err))
	}
	logger.Debug("saved mesh document", zap.String("path", outPath))

	return runErr
}

func (a *app) cmdInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	all := fs.Bool("a", false, "Also list shape keys without any offset")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: skxtool inspect [-a] <file.skx.json>")
		os.Exit(1)
	}

	df, err := skx.ReadFile(a.fs, fs.Arg(0))
	if err != nil {
		return err
	}

	fmt.Printf("File:       %s\n", fs.Arg(0))
	fmt.Printf("Shape keys: %d\n", len(df))
	fmt.Println()

	for _, name := range df.Names() {
		record := df[name]
		moved := 0
		maxOffset := 0.0
		for _, d := range record {
			if d.IsZero() {
				continue
			}
			moved++
			if l := d.Length(); l > maxOffset {
				maxOffset = l
			}
		}
		if moved == 0 && !*all {
			continue
		}
		fmt.Printf("  %-24s %6d vertices  %6d moved  max %.6g\n", name, len(record), moved, maxOffset)
	}
	return nil
}

func (a *app) cmdBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	name := fs.String("name", "", "Object name (default: output file name)")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: skxtool build <out.skm.yaml> <basis.obj> [name=shape.obj ...]")
		os.Exit(1)
	}

	outPath := fs.Arg(0)
	objName := *name
	if objName == "" {
		objName = strings.TrimSuffix(filepath.Base(outPath), mesh.DocumentExtension)
	}

	var shapes []mesh.ShapeSource
	for _, arg := range fs.Args()[2:] {
		key, path, ok := strings.Cut(arg, "=")
		if !ok || key == "" || path == "" {
			return fmt.Errorf("invalid shape source %q: expected name=file.obj", arg)
		}
		shapes = append(shapes, mesh.ShapeSource{Name: key, Path: path})
	}

	m, err := mesh.BuildFromOBJ(a.fs, objName, fs.Arg(1), a.cfg.Transfer.BasisName, shapes)
	if err != nil {
		return err
	}
	if err := mesh.SaveDocument(a.fs, outPath, m); err != nil {
		return err
	}

	logger.Info("built mesh document",
		zap.String("path", outPath),
		zap.Int("vertices", m.VertexCount()),
		zap.Int("shape_keys", len(m.ShapeKeyNames())))
	fmt.Printf("Built %s: %d vertices, %d shape keys\n", outPath, m.VertexCount(), len(m.ShapeKeyNames()))
	return nil
}

func (a *app) cmdConfig(args []string) error {
	if len(args) > 0 {
		if err := a.cfg.SaveTo(a.fs, args[0]); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", args[0])
		return nil
	}

	path, err := a.cfg.Save(a.fs)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}
