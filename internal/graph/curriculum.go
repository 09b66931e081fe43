package graph

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/abhisek/mathlab/internal/exercise"
)

//go:embed curriculum.schema.json
var curriculumSchemaJSON []byte

//go:embed seed.json
var seedJSON []byte

const curriculumSchemaURL = "schema://curriculum.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

// Curriculum is an authored content bundle: the knowledge point DAG and the
// exercises attached to its nodes.
type Curriculum struct {
	Graph     *Graph
	Exercises []exercise.Exercise
}

type curriculumDoc struct {
	KnowledgePoints []KnowledgePoint    `json:"knowledge_points"`
	Exercises       []exercise.Exercise `json:"exercises"`
}

// DefaultCurriculum returns the embedded seed curriculum.
func DefaultCurriculum() (*Curriculum, error) {
	return LoadCurriculum(bytes.NewReader(seedJSON))
}

// LoadCurriculum reads a JSON curriculum, validates it against the
// curriculum schema, builds the graph and checks every exercise.
func LoadCurriculum(r io.Reader) (*Curriculum, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read curriculum: %w", err)
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("invalid curriculum JSON: %w", err)
	}

	schema, err := curriculumSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(parsed); err != nil {
		return nil, fmt.Errorf("curriculum schema validation failed: %w", err)
	}

	var doc curriculumDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode curriculum: %w", err)
	}

	g, err := New(doc.KnowledgePoints)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(doc.Exercises))
	for i := range doc.Exercises {
		ex := &doc.Exercises[i]
		if err := ex.Validate(); err != nil {
			return nil, err
		}
		if seen[ex.ID] {
			return nil, fmt.Errorf("duplicate exercise ID: %q", ex.ID)
		}
		seen[ex.ID] = true
		if !g.Has(ex.KnowledgePointID) {
			return nil, fmt.Errorf("exercise %q: %w: %q", ex.ID, ErrNodeNotFound, ex.KnowledgePointID)
		}
	}

	return &Curriculum{Graph: g, Exercises: doc.Exercises}, nil
}

// curriculumSchema compiles the embedded schema once.
func curriculumSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		var def any
		if err := json.Unmarshal(curriculumSchemaJSON, &def); err != nil {
			schemaErr = fmt.Errorf("parse curriculum schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(curriculumSchemaURL, def); err != nil {
			schemaErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(curriculumSchemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile curriculum schema: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}
