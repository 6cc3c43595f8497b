package vecidx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/vecidx/distance"
)

// Default graph parameters applied by GraphConfig.
const (
	DefaultM              = 16
	DefaultEFConstruction = 100
)

// GraphConfig declares one graph.
type GraphConfig struct {
	Name string `yaml:"name"`

	// VectorSize is the byte size of every vector. When zero it is derived
	// from Dimensions and Metric.
	VectorSize int `yaml:"vector_size"`
	Dimensions int `yaml:"dimensions"`

	M              int    `yaml:"m"`
	EFConstruction int    `yaml:"ef_construction"`
	Metric         string `yaml:"metric"`
}

// graphsFile is the document layout read by ParseGraphConfig.
type graphsFile struct {
	Graphs []GraphConfig `yaml:"graphs"`
}

// ParseGraphConfig parses a YAML document of the form
//
//	graphs:
//	  - name: docs
//	    dimensions: 384
//	    metric: cosine
//
// Unknown fields are rejected. Defaults are applied to every entry.
func ParseGraphConfig(data []byte) ([]GraphConfig, error) {
	var file graphsFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	for i := range file.Graphs {
		if err := file.Graphs[i].normalize(); err != nil {
			return nil, err
		}
	}
	return file.Graphs, nil
}

// LoadGraphConfig reads and parses a YAML graph configuration file.
func LoadGraphConfig(path string) ([]GraphConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph config %q: %w", path, err)
	}
	return ParseGraphConfig(data)
}

func (c *GraphConfig) normalize() error {
	if c.Name == "" {
		return fmt.Errorf("%w: missing graph name", ErrInvalidConfig)
	}
	if c.M == 0 {
		c.M = DefaultM
	}
	if c.EFConstruction == 0 {
		c.EFConstruction = DefaultEFConstruction
	}
	if c.Metric == "" {
		c.Metric = distance.MetricCosineFloat.String()
	}

	metric, err := c.metric()
	if err != nil {
		return err
	}
	if c.VectorSize == 0 && c.Dimensions > 0 {
		c.VectorSize = vectorSizeFor(metric, c.Dimensions)
	}
	return validateGraph(c.VectorSize, c.M, c.EFConstruction, metric)
}

func (c *GraphConfig) metric() (distance.Metric, error) {
	m, err := distance.ParseMetric(c.Metric)
	if err != nil {
		return 0, translateError(err)
	}
	return m, nil
}

// vectorSizeFor returns the encoded byte size of a vector with dims elements.
func vectorSizeFor(m distance.Metric, dims int) int {
	switch m {
	case distance.MetricCosineInt8:
		return dims + 4
	case distance.MetricHamming:
		return (dims + 7) / 8
	default:
		return dims * 4
	}
}

func validateGraph(vectorSize, m, efConstruction int, metric distance.Metric) error {
	if err := distance.ValidateVectorSize(metric, vectorSize); err != nil {
		return translateError(err)
	}
	if m < 2 || m > 0xffff {
		return fmt.Errorf("%w: M must be in [2, 65535], got %d", ErrInvalidConfig, m)
	}
	if efConstruction < 1 || efConstruction > 0xffff {
		return fmt.Errorf("%w: efConstruction must be in [1, 65535], got %d", ErrInvalidConfig, efConstruction)
	}
	return nil
}
