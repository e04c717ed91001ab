package main

import (
	"errors"
	"fmt"

	"github.com/hupe1980/knn"
	"github.com/hupe1980/knn/dataset"
	"github.com/hupe1980/knn/testutil"
	"github.com/spf13/cobra"
)

// ErrInvalidDistribution is returned for an unknown --distribution value.
var ErrInvalidDistribution = errors.New("distribution must be uniform, clustered or grid")

func newGenCmd(cfg *Config) *cobra.Command {
	var (
		width        int
		distribution string
		clusters     int
		spread       float32
		side         int
		compression  string
	)

	cmd := &cobra.Command{
		Use:   "gen PATH",
		Short: "Write a generated point set to a dataset file",
		Long: `Gen writes a point set to PATH. Files ending in .parquet are written as
parquet rows, everything else in the block format, optionally compressed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dataset.ParseCompression(compression)
			if err != nil {
				return err
			}
			if width <= 0 {
				return ErrInvalidRefNb
			}
			if cfg.Dim <= 0 {
				return ErrInvalidDim
			}

			ps, err := generate(testutil.NewRNG(cfg.Seed), distribution, width, cfg.Dim, clusters, spread, side)
			if err != nil {
				return err
			}

			path := args[0]
			if err := dataset.Save(path, ps, c); err != nil {
				return fmt.Errorf("save %s: %w", path, err)
			}

			NewLogger(cfg).Info("dataset written",
				"path", path,
				"format", dataset.FormatOf(path).String(),
				"width", ps.Width,
				"dim", ps.Dim,
			)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&width, "width", cfg.RefNb, "number of points")
	f.IntVar(&cfg.Dim, "dim", cfg.Dim, "dimension of the points")
	f.Int64Var(&cfg.Seed, "seed", cfg.Seed, "generator seed")
	f.StringVar(&distribution, "distribution", "uniform", "uniform, clustered or grid")
	f.IntVar(&clusters, "clusters", 16, "number of clusters (clustered)")
	f.Float32Var(&spread, "spread", 0.05, "standard deviation around each centroid (clustered)")
	f.IntVar(&side, "side", 4, "lattice points per dimension (grid)")
	f.StringVar(&compression, "compression", "none", "block compression: none, lz4 or zstd")

	return cmd
}

func generate(rng *testutil.RNG, distribution string, width, dim, clusters int, spread float32, side int) (knn.PointSet, error) {
	switch distribution {
	case "uniform":
		return rng.UniformPointSet(width, dim), nil
	case "clustered":
		if clusters <= 0 {
			return knn.PointSet{}, fmt.Errorf("clusters must be positive, got %d", clusters)
		}
		return rng.ClusteredPointSet(width, dim, clusters, spread), nil
	case "grid":
		if side <= 0 {
			return knn.PointSet{}, fmt.Errorf("side must be positive, got %d", side)
		}
		return testutil.GridPointSet(width, dim, side), nil
	default:
		return knn.PointSet{}, ErrInvalidDistribution
	}
}
