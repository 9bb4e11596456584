package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maxmind/regtree"
)

type contribsCmdConfig struct {
	modelFile    string
	featuresFile string
	ntreeLimit   int
	approx       bool
}

func contribsCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &contribsCmdConfig{}
	cmd := &cobra.Command{
		Use:   "contribs",
		Short: "Calculate per-feature contributions for a batch of feature rows",
		Long:  `Load an XGBoost JSON model and print the SHAP feature contributions for every row of a CSV features file (empty cells are missing values)`,
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
				Bool("approx", config.approx).
				Msg("model loaded")

			featuresSets, err := loadFeatures(config.featuresFile)
			if err != nil {
				return fmt.Errorf("loading features: %w", err)
			}

			for i, features := range featuresSets {
				var contribs []float32
				if config.approx {
					contribs, err = predictor.PredictContributionsApprox(features)
				} else {
					contribs, err = predictor.PredictContributions(features)
				}
				if err != nil {
					return fmt.Errorf("calculating contributions for row %d: %w", i, err)
				}

				fmt.Printf("Feature set %d:\n", i)
				for j, feature := range features {
					if feature == nil {
						fmt.Printf("  Feature %d: missing\n", j)
					} else {
						fmt.Printf("  Feature %d: %.6f\n", j, *feature)
					}
				}
				fmt.Printf("Contributions for feature set %d:\n", i)
				// The last entry is the bias, not a contribution.
				for j, contribution := range contribs[:len(contribs)-1] {
					fmt.Printf("  Contribution %d: %.6f\n", j, contribution)
				}
				fmt.Printf("  Bias: %.6f\n", contribs[len(contribs)-1])
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&config.modelFile, "model", "m", "", "path to the XGBoost model JSON file (required)")
	cmd.Flags().StringVarP(&config.featuresFile, "features", "f", "", "path to a CSV file with one feature row per line (required)")
	cmd.Flags().IntVar(&config.ntreeLimit, "ntree-limit", 0, "number of trees to use; defaults to the model's best_ntree_limit")
	cmd.Flags().BoolVar(&config.approx, "approx", false, "use the fast path-based approximation instead of exact SHAP values")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("features")
	return cmd
}
