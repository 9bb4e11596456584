package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maxmind/regtree"
)

type predictCmdConfig struct {
	modelFile    string
	featuresFile string
	ntreeLimit   int
}

func predictCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &predictCmdConfig{}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict margins for a batch of feature rows",
		Long:  `Load an XGBoost JSON model and print the ensemble margin for every row of a CSV features file (empty cells are missing values)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(rootConfig)

			predictor, err := regtree.NewPredictor(
				config.modelFile,
				regtree.NtreeLimit(config.ntreeLimit),
			)
			if err != nil {
				return fmt.Errorf("loading model: %w", err)
			}
			log.Debug().
				Str("model", config.modelFile).
				Int("trees", predictor.NumTrees()).
				Msg("model loaded")

			featuresSets, err := loadFeatures(config.featuresFile)
			if err != nil {
				return fmt.Errorf("loading features: %w", err)
			}

			for i, features := range featuresSets {
				fmt.Printf("%d: %.6f\n", i, predictor.PredictValue(features))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&config.modelFile, "model", "m", "", "path to the XGBoost model JSON file (required)")
	cmd.Flags().StringVarP(&config.featuresFile, "features", "f", "", "path to a CSV file with one feature row per line (required)")
	cmd.Flags().IntVar(&config.ntreeLimit, "ntree-limit", 0, "number of trees to use; defaults to the model's best_ntree_limit")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("features")
	return cmd
}
