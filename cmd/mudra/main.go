package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/classify"
	"github.com/ayusman/mudra/internal/dataset"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/nn"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
)

func main() {
	app := cli.NewApp()
	app.Name = "mudra"
	app.Usage = "finger-count gesture classifier"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "verbose",
			Usage: "enable debug logging",
		},
	}
	app.Before = func(c *cli.Context) error {
		if c.GlobalBool("verbose") {
			logrus.SetLevel(logrus.DebugLevel)
		}
		return nil
	}
	app.Commands = []cli.Command{
		importCommand(),
		trainCommand(),
		liveCommand(),
		serveCommand(),
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

// dataDir returns ~/.mudra, creating it if needed.
func dataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ".mudra")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dir, nil
}

func openStore() (*store.Store, error) {
	dir, err := dataDir()
	if err != nil {
		return nil, err
	}
	return store.New(filepath.Join(dir, "mudra.db"))
}

// resolveModelPath returns the model path from the flag, falling back to
// the path recorded by the most recent training run.
func resolveModelPath(flag string, st *store.Store) (string, error) {
	if flag != "" {
		return flag, nil
	}
	path, err := st.Settings().Get(store.SettingLastModel)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", errors.New("no trained model yet, pass --model or run mudra train")
		}
		return "", err
	}
	return path, nil
}

func importCommand() cli.Command {
	return cli.Command{
		Name:  "import",
		Usage: "load landmark CSV files into the sample store",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "dir",
				Usage: "directory of per-class CSV files",
			},
		},
		Action: func(c *cli.Context) error {
			dir := c.String("dir")
			if dir == "" {
				return errors.New("--dir is required")
			}

			samples, err := dataset.ReadCSVDir(dir)
			if err != nil {
				return err
			}
			if len(samples) == 0 {
				return fmt.Errorf("no samples found under %s", dir)
			}

			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Samples().Create(samples, "csv:"+dir); err != nil {
				return err
			}

			counts, err := st.Samples().CountByClass()
			if err != nil {
				return err
			}
			logrus.WithField("imported", len(samples)).Info("import complete")
			for _, class := range dataset.Classes {
				logrus.Infof("  %-6s %d", class, counts[class])
			}
			return nil
		},
	}
}

func trainCommand() cli.Command {
	defaults := nn.DefaultConfig()
	return cli.Command{
		Name:  "train",
		Usage: "train a classifier on the stored samples",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "model",
				Usage: "output model path (default ~/.mudra/model.json)",
			},
			cli.IntFlag{
				Name:  "epochs",
				Value: defaults.Epochs,
			},
			cli.IntFlag{
				Name:  "batch",
				Value: defaults.BatchSize,
			},
			cli.Float64Flag{
				Name:  "val",
				Usage: "validation split fraction",
				Value: defaults.ValSplit,
			},
			cli.Int64Flag{
				Name:  "seed",
				Value: defaults.Seed,
			},
		},
		Action: func(c *cli.Context) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			samples, err := st.Samples().ListDataset()
			if err != nil {
				return err
			}
			ds, err := dataset.Build(samples)
			if err != nil {
				return err
			}
			if ds.Skipped > 0 {
				logrus.Warnf("skipped %d unusable samples", ds.Skipped)
			}
			logrus.WithField("samples", ds.Len()).Info("dataset ready")

			cfg := defaults
			cfg.Epochs = c.Int("epochs")
			cfg.BatchSize = c.Int("batch")
			cfg.ValSplit = c.Float64("val")
			cfg.Seed = c.Int64("seed")

			net := nn.New(dataset.Classes, cfg)
			history, err := net.Fit(ds)
			if err != nil {
				return err
			}

			modelPath := c.String("model")
			if modelPath == "" {
				dir, err := dataDir()
				if err != nil {
					return err
				}
				modelPath = filepath.Join(dir, "model.json")
			}
			if err := net.Save(modelPath); err != nil {
				return err
			}

			summary := history.Summary()
			run := &store.Run{
				ID:            uuid.New().String(),
				Epochs:        summary.Epochs,
				BatchSize:     cfg.BatchSize,
				TrainLoss:     summary.TrainLoss,
				TrainAccuracy: summary.TrainAccuracy,
				ValLoss:       summary.ValLoss,
				ValAccuracy:   summary.ValAccuracy,
				ModelPath:     modelPath,
			}
			if err := st.Runs().Create(run); err != nil {
				return err
			}
			if err := st.Settings().Set(store.SettingLastModel, modelPath); err != nil {
				return err
			}
			if err := st.Settings().Set(store.SettingLastRun, run.ID); err != nil {
				return err
			}

			logrus.WithFields(logrus.Fields{
				"run":       run.ID,
				"model":     modelPath,
				"train_acc": fmt.Sprintf("%.3f", summary.TrainAccuracy),
				"val_acc":   fmt.Sprintf("%.3f", summary.ValAccuracy),
			}).Info("training complete")
			return nil
		},
	}
}

func liveCommand() cli.Command {
	return cli.Command{
		Name:  "live",
		Usage: "classify finger counts from the webcam",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "model",
				Usage: "trained model path (default: last trained model)",
			},
			cli.IntFlag{
				Name:  "camera",
				Usage: "camera device ID",
			},
		},
		Action: func(c *cli.Context) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			modelPath, err := resolveModelPath(c.String("model"), st)
			st.Close()
			if err != nil {
				return err
			}

			net, err := nn.Load(modelPath)
			if err != nil {
				return err
			}

			det, err := detector.NewMediaPipeDetector(detector.Config{
				MaxHands:        1,
				MinConfidence:   0.5,
				MinTrackingConf: 0.5,
			})
			if err != nil {
				return err
			}
			defer det.Close()

			cfg := classify.DefaultConfig()
			cfg.CameraID = c.Int("camera")

			cls := classify.New(cfg, capture.NewCamera(cfg.CameraID), det, net)
			logrus.WithField("model", modelPath).Info("starting live classification, press ESC to quit")
			return cls.Run()
		},
	}
}

func serveCommand() cli.Command {
	return cli.Command{
		Name:  "serve",
		Usage: "run the local preview and sample-collection server",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "addr",
				Value: ":8080",
			},
			cli.StringFlag{
				Name:  "model",
				Usage: "trained model path for live predictions (optional)",
			},
			cli.IntFlag{
				Name:  "camera",
				Usage: "camera device ID",
			},
			cli.StringFlag{
				Name:  "static",
				Usage: "directory of static UI files",
			},
		},
		Action: func(c *cli.Context) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			var net *nn.Network
			if path := c.String("model"); path != "" {
				net, err = nn.Load(path)
				if err != nil {
					return err
				}
			}

			det, err := detector.NewMediaPipeDetector(detector.Config{
				MaxHands:        1,
				MinConfidence:   0.5,
				MinTrackingConf: 0.5,
			})
			if err != nil {
				return err
			}
			defer det.Close()

			camera := capture.NewCamera(c.Int("camera"))
			if err := camera.Open(); err != nil {
				logrus.Warnf("camera unavailable, stream endpoints disabled: %v", err)
				camera = nil
			} else {
				defer camera.Close()
			}

			srv := server.New(server.Config{
				StaticDir: c.String("static"),
				Store:     st,
				Camera:    camera,
				Detector:  det,
				Net:       net,
			})

			logrus.WithField("addr", c.String("addr")).Info("server listening")
			return srv.ListenAndServe(c.String("addr"))
		},
	}
}
