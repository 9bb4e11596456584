package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maxmind/regtree"
)

type dumpCmdConfig struct {
	modelFile string
	fmapFile  string
	format    string
	withStats bool
}

func dumpCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &dumpCmdConfig{}
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Dump a model's trees in a readable format",
		Long:  `Load an XGBoost JSON model and print each tree as text or JSON, optionally naming features through a feature map (fmap TSV or YAML)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(rootConfig)

			predictor, err := regtree.NewPredictor(config.modelFile)
			if err != nil {
				return fmt.Errorf("loading model: %w", err)
			}

			var fmap *regtree.FeatureMap
			if config.fmapFile != "" {
				fmap, err = regtree.ReadFeatureMapFile(config.fmapFile)
				if err != nil {
					return fmt.Errorf("loading feature map: %w", err)
				}
				log.Debug().
					Str("fmap", config.fmapFile).
					Int("features", fmap.Size()).
					Msg("feature map loaded")
			}

			for i, tree := range predictor.Trees() {
				out, err := tree.Dump(fmap, config.withStats, config.format)
				if err != nil {
					return fmt.Errorf("dumping tree %d: %w", i, err)
				}
				fmt.Printf("booster[%d]:\n%s", i, out)
				if config.format == "json" {
					fmt.Println()
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&config.modelFile, "model", "m", "", "path to the XGBoost model JSON file (required)")
	cmd.Flags().StringVar(&config.fmapFile, "fmap", "", "path to a feature map (TSV fmap or YAML) naming the features")
	cmd.Flags().StringVar(&config.format, "format", "text", "dump format: text or json")
	cmd.Flags().BoolVar(&config.withStats, "with-stats", false, "include split gain and cover statistics")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}
