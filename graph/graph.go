package graph

import (
	"sort"

	"github.com/google/uuid"

	"github.com/RobokopU24/robokop-genetics/curie"
)

// Node type tags used by the resolver.
const (
	TypeSequenceVariant = "sequence_variant"
	TypeGene            = "gene"
)

// Node is a consumer-facing graph node: a sequence variant before and
// after normalization, or a gene produced by an annotator.
//
// Only id, type, and name are cached for annotator results; properties
// and synonyms are rebuilt from normalization after the fact.
type Node struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`

	Properties map[string]any      `json:"-"`
	synonyms   map[string]struct{} `json:"-"`
}

// NewNode creates a node with the given id and type, seeding the synonym
// set with the id itself.
func NewNode(id, nodeType string) *Node {
	n := &Node{
		ID:         id,
		Type:       nodeType,
		Properties: make(map[string]any),
		synonyms:   make(map[string]struct{}),
	}
	n.AddSynonyms(id)
	return n
}

// AddSynonyms adds curies to the node's synonym set. Duplicates are
// ignored.
func (n *Node) AddSynonyms(curies ...string) {
	if n.synonyms == nil {
		n.synonyms = make(map[string]struct{})
	}
	for _, c := range curies {
		n.synonyms[c] = struct{}{}
	}
}

// Synonyms returns the node's synonym set as a sorted slice.
func (n *Node) Synonyms() []string {
	out := make([]string, 0, len(n.synonyms))
	for c := range n.synonyms {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// SynonymsByPrefix returns the synonyms whose curie prefix matches the
// given prefix, ignoring case, sorted for stable iteration.
func (n *Node) SynonymsByPrefix(prefix string) []string {
	return curie.FilterByPrefix(prefix, n.Synonyms())
}

// SynonymCount returns the size of the node's synonym set.
func (n *Node) SynonymCount() int {
	return len(n.synonyms)
}

// Edge is a relationship between two nodes, produced by a downstream
// annotator. SourceID is the normalized variant curie and InputID the
// identifier actually sent to the annotation service.
type Edge struct {
	ID             string         `json:"-"`
	SourceID       string         `json:"source_id"`
	TargetID       string         `json:"target_id"`
	ProvidedBy     string         `json:"provided_by"`
	InputID        string         `json:"input_id"`
	PredicateID    string         `json:"predicate_id"`
	PredicateLabel string         `json:"predicate_label"`
	CTime          int64          `json:"ctime"`
	Publications   []string       `json:"publications"`
	Properties     map[string]any `json:"properties"`
}

// NewEdge creates an edge with a fresh unique id. Publications and
// properties are initialized empty so the edge always encodes with both
// fields present.
func NewEdge(sourceID, targetID, providedBy, inputID, predicateID, predicateLabel string, ctime int64) *Edge {
	return &Edge{
		ID:             uuid.NewString(),
		SourceID:       sourceID,
		TargetID:       targetID,
		ProvidedBy:     providedBy,
		InputID:        inputID,
		PredicateID:    predicateID,
		PredicateLabel: predicateLabel,
		CTime:          ctime,
		Publications:   []string{},
		Properties:     make(map[string]any),
	}
}

// Relation pairs an edge with the node it points at, the unit of annotator
// output and of the annotator result cache.
type Relation struct {
	Edge *Edge `json:"edge"`
	Node *Node `json:"node"`
}

// Normalization is the canonical identity computed for one variant
// identifier: the preferred curie, a short display name, and the full set
// of known equivalent identifiers. A multi-allelic lookup yields several
// of these, one per resolved allele.
//
// Normalizations are immutable once produced; Synonyms is kept sorted so
// cached and freshly computed results compare equal.
type Normalization struct {
	ID       string
	Name     string
	Synonyms []string
}
