package regtree

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	yaml "gopkg.in/yaml.v2"
)

// FeatureType describes how a feature should be rendered in dumps.
type FeatureType int

const (
	// Indicator features are binary flags; splits on them read as set
	// or unset rather than as thresholds.
	Indicator FeatureType = iota
	// Quantitative features are real-valued.
	Quantitative
	// Integer features are whole-valued.
	Integer
	// Float features are real-valued, rendered like Quantitative.
	Float
)

// FeatureMap gives interpretations to feature indices for model dumps.
// Indices without an entry render as f<N>.
type FeatureMap struct {
	names []string
	types []FeatureType
}

// PushBack appends a feature. The index must equal the current size;
// the map is dense and ordered.
func (fm *FeatureMap) PushBack(index int, name string, ftype FeatureType) error {
	if index != len(fm.names) {
		return fmt.Errorf("feature map indices must be consecutive, got %d after %d entries", index, len(fm.names))
	}
	fm.names = append(fm.names, name)
	fm.types = append(fm.types, ftype)
	return nil
}

// Size returns the number of mapped features.
func (fm *FeatureMap) Size() int { return len(fm.names) }

// Name returns the display name of the given feature index.
func (fm *FeatureMap) Name(index int) string {
	if fm != nil && index < len(fm.names) {
		return fm.names[index]
	}
	return fmt.Sprintf("f%d", index)
}

// Type returns the type of the given feature index, Quantitative when
// unmapped.
func (fm *FeatureMap) Type(index int) FeatureType {
	if fm != nil && index < len(fm.types) {
		return fm.types[index]
	}
	return Quantitative
}

func parseFeatureType(s string) (FeatureType, error) {
	switch s {
	case "i":
		return Indicator, nil
	case "q":
		return Quantitative, nil
	case "int":
		return Integer, nil
	case "float":
		return Float, nil
	}
	return 0, fmt.Errorf("unknown feature type %q", s)
}

// ReadFeatureMap parses the tab-separated fmap format, one
// "index<TAB>name<TAB>type" line per feature, with type one of i, q,
// int or float. Blank lines are skipped.
func ReadFeatureMap(r io.Reader) (*FeatureMap, error) {
	fm := &FeatureMap{}
	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 3 {
			return nil, fmt.Errorf("line %d: expected 3 tab-separated fields, got %d", lineno, len(fields))
		}
		index, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing feature index: %w", lineno, err)
		}
		ftype, err := parseFeatureType(fields[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineno, err)
		}
		if err := fm.PushBack(index, fields[1], ftype); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineno, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading feature map: %w", err)
	}
	return fm, nil
}

// ReadFeatureMapYAML parses a YAML feature specification of the form
//
//	features:
//	  - name: age
//	    type: q
//	  - name: has_account
//	    type: i
//
// Entries are indexed in document order; a missing type defaults to q.
func ReadFeatureMapYAML(data []byte) (*FeatureMap, error) {
	var doc struct {
		Features []struct {
			Name string `yaml:"name"`
			Type string `yaml:"type"`
		} `yaml:"features"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing yml features: %w", err)
	}
	if len(doc.Features) == 0 {
		return nil, fmt.Errorf("feature specification has no features")
	}
	fm := &FeatureMap{}
	for i, f := range doc.Features {
		if f.Name == "" {
			return nil, fmt.Errorf("feature %d has no name", i)
		}
		ftype := Quantitative
		if f.Type != "" {
			var err error
			ftype, err = parseFeatureType(f.Type)
			if err != nil {
				return nil, fmt.Errorf("feature %q: %w", f.Name, err)
			}
		}
		if err := fm.PushBack(i, f.Name, ftype); err != nil {
			return nil, err
		}
	}
	return fm, nil
}

// ReadFeatureMapFile loads a feature map from a file, choosing the
// parser from the extension: .yml and .yaml use the YAML
// specification, everything else the tab-separated fmap format.
func ReadFeatureMapFile(path string) (*FeatureMap, error) {
	switch filepath.Ext(path) {
	case ".yml", ".yaml":
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("reading feature map file: %w", err)
		}
		return ReadFeatureMapYAML(data)
	default:
		fh, err := os.Open(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("opening feature map file: %w", err)
		}
		defer fh.Close()
		return ReadFeatureMap(fh)
	}
}
