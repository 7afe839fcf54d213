package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/recolude/plyzarr/plyzarr"
	"github.com/recolude/plyzarr/meshio"
	"github.com/recolude/plyzarr/plyheader"
	"github.com/recolude/plyzarr/store"
)

func loadConfig(c *cli.Context) (plyzarr.Config, error) {
	cfg := plyzarr.DefaultConfig()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = plyzarr.LoadConfig(path); err != nil {
			return cfg, err
		}
	}
	if c.IsSet("chunk-rows") {
		cfg.ChunkRows = c.Int("chunk-rows")
	}
	if c.IsSet("compressor") {
		cfg.Compressor = c.String("compressor")
	}
	cfg.Logger = slog.Default()
	return cfg, nil
}

// openStore opens an existing directory store without creating one.
func openStore(path string) (*store.Directory, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrap(err, "opening store")
	}
	return store.OpenDirectory(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func output(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

func writeAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	f, err := os.Open(c.String("ply"))
	if err != nil {
		return err
	}
	defer f.Close()

	dir, err := cfg.OpenDirectory(c.String("out"))
	if err != nil {
		return err
	}

	m, err := plyzarr.New(cfg).Import(f, dir)
	if err != nil {
		return err
	}
	slog.Info("wrote mesh", "store", dir.Path(), "points", m.NumPoints(), "faces", m.NumCells(), "blocks", len(m.Cells))
	return nil
}

func exportAction(c *cli.Context) error {
	dir, err := openStore(c.String("store"))
	if err != nil {
		return err
	}

	out, err := output(c.String("out"))
	if err != nil {
		return err
	}
	defer out.Close()

	mp := plyzarr.New(plyzarr.Config{Logger: slog.Default()})
	if !c.Bool("binary") {
		return mp.ToPly(dir, out)
	}
	m, err := mp.Read(dir)
	if err != nil {
		return err
	}
	return meshio.WriteBinary(out, m)
}

func headerAction(c *cli.Context) error {
	var h *plyheader.Header
	switch {
	case c.String("ply") != "":
		f, err := os.Open(c.String("ply"))
		if err != nil {
			return err
		}
		defer f.Close()
		if h, err = plyheader.Parse(f); err != nil {
			return err
		}

	case c.String("store") != "":
		dir, err := openStore(c.String("store"))
		if err != nil {
			return err
		}
		if h, err = plyzarr.ReadHeader(dir); err != nil {
			return err
		}

	default:
		return errors.New("one of --ply or --store is required")
	}

	var data []byte
	var err error
	switch c.String("format") {
	case "yaml":
		data, err = yaml.Marshal(h)
	case "json":
		data, err = json.MarshalIndent(h, "", "    ")
		data = append(data, '\n')
	case "ply":
		data = []byte(h.String())
	default:
		return fmt.Errorf("unknown format %q", c.String("format"))
	}
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(data)
	return err
}

func main() {
	app := &cli.App{
		Name:  "plyzarr",
		Usage: "Stores PLY meshes as chunked zarr hierarchies and back",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log debug output",
			},
		},
		Before: func(c *cli.Context) error {
			level := slog.LevelInfo
			if c.Bool("verbose") {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "write",
				Usage: "writes a ply file into a zarr directory",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "ply",
						Usage:    "path to ply file",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "out",
						Usage:    "path to zarr directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "config",
						Usage: "path to TOML config",
					},
					&cli.IntFlag{
						Name:  "chunk-rows",
						Usage: "rows per chunk file",
						Value: store.DefaultChunkRows,
					},
					&cli.StringFlag{
						Name:  "compressor",
						Usage: "chunk compressor, lzf or empty for none",
					},
				},
				Action: writeAction,
			},
			{
				Name:  "export",
				Usage: "writes the mesh held in a zarr directory as ply",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "store",
						Usage:    "path to zarr directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "out",
						Usage: "path to ply file, stdout when empty",
					},
					&cli.BoolFlag{
						Name:  "binary",
						Usage: "write binary little endian ply (triangles and point clouds only)",
					},
				},
				Action: exportAction,
			},
			{
				Name:  "header",
				Usage: "prints the header of a ply file or zarr directory",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "ply",
						Usage: "path to ply file",
					},
					&cli.StringFlag{
						Name:  "store",
						Usage: "path to zarr directory",
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "yaml, json or ply",
						Value: "yaml",
					},
				},
				Action: headerAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
