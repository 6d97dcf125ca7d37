package cache

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/RobokopU24/robokop-genetics/graph"
)

// encodeNormalizations renders a candidate list as a JSON array of
// [id, name, [synonym...]] triples.
func encodeNormalizations(normalizations []graph.Normalization) ([]byte, error) {
	triples := make([]any, 0, len(normalizations))
	for _, n := range normalizations {
		synonyms := n.Synonyms
		if synonyms == nil {
			synonyms = []string{}
		}
		triples = append(triples, []any{n.ID, n.Name, synonyms})
	}
	return json.Marshal(triples)
}

// decodeNormalizations parses a stored candidate list. Values written by
// earlier releases hold a single bare triple instead of a list of
// triples; those are detected by their leading string element and decoded
// as a one-candidate list.
func decodeNormalizations(data []byte) ([]graph.Normalization, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, fmt.Errorf("decoding normalization value: %w", err)
	}

	if len(elements) == 3 && isJSONString(elements[0]) {
		n, err := decodeTriple(elements)
		if err != nil {
			return nil, err
		}
		return []graph.Normalization{n}, nil
	}

	normalizations := make([]graph.Normalization, 0, len(elements))
	for _, element := range elements {
		var triple []json.RawMessage
		if err := json.Unmarshal(element, &triple); err != nil {
			return nil, fmt.Errorf("decoding normalization candidate: %w", err)
		}
		n, err := decodeTriple(triple)
		if err != nil {
			return nil, err
		}
		normalizations = append(normalizations, n)
	}
	return normalizations, nil
}

func decodeTriple(triple []json.RawMessage) (graph.Normalization, error) {
	var n graph.Normalization
	if len(triple) != 3 {
		return n, fmt.Errorf("normalization triple has %d elements, want 3", len(triple))
	}
	if err := json.Unmarshal(triple[0], &n.ID); err != nil {
		return n, fmt.Errorf("decoding normalized id: %w", err)
	}
	if err := json.Unmarshal(triple[1], &n.Name); err != nil {
		return n, fmt.Errorf("decoding normalized name: %w", err)
	}
	if err := json.Unmarshal(triple[2], &n.Synonyms); err != nil {
		return n, fmt.Errorf("decoding synonyms: %w", err)
	}
	if n.Synonyms == nil {
		n.Synonyms = []string{}
	}
	return n, nil
}

func isJSONString(raw json.RawMessage) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '"'
}

func encodeRelations(relations []graph.Relation) ([]byte, error) {
	if relations == nil {
		relations = []graph.Relation{}
	}
	return json.Marshal(relations)
}

// decodeRelations parses cached annotator output. JSON turns the numeric
// distance property into a float; it is folded back to an int so cached
// and freshly computed edges carry the same property types.
func decodeRelations(data []byte) ([]graph.Relation, error) {
	relations := []graph.Relation{}
	if err := json.Unmarshal(data, &relations); err != nil {
		return nil, fmt.Errorf("decoding service results: %w", err)
	}
	for _, r := range relations {
		if r.Edge == nil {
			continue
		}
		if d, ok := r.Edge.Properties["distance"].(float64); ok {
			r.Edge.Properties["distance"] = int(d)
		}
	}
	return relations, nil
}
