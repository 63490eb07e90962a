package bridge

import "fmt"

// ReasonerMode selects how classification and consistency questions are
// answered.
type ReasonerMode string

const (
	// ReasonerOff short-circuits: consistency is vacuously true and class
	// membership is a direct rdf:type scan. No reasoner is contacted.
	ReasonerOff ReasonerMode = "off"
	// ReasonerRDFS delegates with RDFS entailment (subclass closure).
	ReasonerRDFS ReasonerMode = "rdfs"
	// ReasonerFull delegates with full classification, including
	// disjointness-based consistency checking.
	ReasonerFull ReasonerMode = "full"
)

// Valid reports whether the mode is one of the recognized values.
func (m ReasonerMode) Valid() bool {
	switch m {
	case ReasonerOff, ReasonerRDFS, ReasonerFull:
		return true
	}
	return false
}

// SourceFlags enables or disables each triple source.
type SourceFlags struct {
	Heap             bool
	StaticTable      bool
	CoreVocabulary   bool
	ExternalOntology bool
}

// PushdownFlags enables a pure performance strategy per source. Guards push
// query filters into triple generation; virtualization answers queries
// lazily instead of materializing the source. Neither may ever change a
// result set, only its evaluation cost.
type PushdownFlags struct {
	Heap        bool
	StaticTable bool
}

// Settings is the process-wide bridge configuration for one run. It is
// passed explicitly into every bridge operation; changes between steps take
// effect on the next call.
type Settings struct {
	Sources        SourceFlags
	Guards         PushdownFlags
	Virtualization PushdownFlags
	ReasonerMode   ReasonerMode
}

// DefaultSettings enables the heap, static table, and core vocabulary, with
// no pushdown and the reasoner off. The external ontology source stays off
// until a document is supplied.
func DefaultSettings() Settings {
	return Settings{
		Sources: SourceFlags{
			Heap:           true,
			StaticTable:    true,
			CoreVocabulary: true,
		},
		ReasonerMode: ReasonerOff,
	}
}

// Validate rejects unrecognized reasoner modes.
func (s Settings) Validate() error {
	if !s.ReasonerMode.Valid() {
		return fmt.Errorf("unknown reasoner mode %q", s.ReasonerMode)
	}
	return nil
}
