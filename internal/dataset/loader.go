package dataset

import (
	"bufio"
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	ErrNotADataset = errors.New("not a dataset directory")
	ErrRowCount    = errors.New("row count does not match dataset_info.json")
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	schemasOnce sync.Once
	dictSchema  *jsonschema.Schema
	infoSchema  *jsonschema.Schema
	schemasErr  error
)

func compileSchema(name string) (*jsonschema.Schema, error) {
	b, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}
	s, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return s, nil
}

func loadSchemas() error {
	schemasOnce.Do(func() {
		if dictSchema, schemasErr = compileSchema("dataset_dict.schema.json"); schemasErr != nil {
			return
		}
		infoSchema, schemasErr = compileSchema("dataset_info.schema.json")
	})
	return schemasErr
}

// readValidated decodes a JSON file into out after checking it against schema.
func readValidated(path string, schema *jsonschema.Schema, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%s does not match schema: %w", filepath.Base(path), err)
	}
	return json.Unmarshal(b, out)
}

// Load reads a dataset written by JSONLWriter.
func Load(path string) (*Dataset, error) {
	if err := loadSchemas(); err != nil {
		return nil, err
	}
	var dict datasetDict
	if err := readValidated(filepath.Join(path, dictFile), dictSchema, &dict); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotADataset, path)
		}
		return nil, err
	}

	ds := newDataset()
	for _, s := range dict.Splits {
		dir := filepath.Join(path, string(s))
		var info datasetInfo
		if err := readValidated(filepath.Join(dir, infoFile), infoSchema, &info); err != nil {
			return nil, fmt.Errorf("split %s: %w", s, err)
		}
		rows, err := readJSONL(filepath.Join(dir, dataFile))
		if err != nil {
			return nil, fmt.Errorf("split %s: %w", s, err)
		}
		if len(rows) != info.NumRows {
			return nil, fmt.Errorf("split %s: %w: %d rows, expected %d", s, ErrRowCount, len(rows), info.NumRows)
		}
		ds.Splits[s] = rows
	}
	return ds, nil
}

func readJSONL(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []Sample
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(bytes.TrimSpace(sc.Bytes())) == 0 {
			continue
		}
		var s Sample
		if err := json.Unmarshal(sc.Bytes(), &s); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", filepath.Base(path), line, err)
		}
		rows = append(rows, s)
	}
	return rows, sc.Err()
}
