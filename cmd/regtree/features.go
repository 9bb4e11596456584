package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// loadFeatures reads feature rows from a CSV file, one row per
// prediction. Empty cells are missing values and come back as nil.
func loadFeatures(filename string) ([][]*float32, error) {
	fh, err := os.Open(filepath.Clean(filename))
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer fh.Close()

	csvReader := csv.NewReader(fh)
	var featuresSets [][]*float32
	for {
		record, err := csvReader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("reading: %w", err)
		}

		var features []*float32
		for _, col := range record {
			if col == "" {
				features = append(features, nil) // Indicates a missing value.
				continue
			}

			feature, err := strconv.ParseFloat(col, 32)
			if err != nil {
				return nil, fmt.Errorf("parsing float: %w", err)
			}
			feature32 := float32(feature)

			features = append(features, &feature32)
		}

		featuresSets = append(featuresSets, features)
	}

	return featuresSets, nil
}
