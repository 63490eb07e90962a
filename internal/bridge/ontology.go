package bridge

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadOntology parses a caller-supplied domain ontology document into
// triples, preserving document order. The format is a line-oriented
// N-Triples/Turtle subset: optional @prefix lines, then one triple per
// line, terms being <iri>, CURIE, quoted string, or number. Document
// prefixes extend (and may shadow) the run's prefix table for the scope of
// the document only.
func LoadOntology(r io.Reader, prefixes *Prefixes) ([]Triple, error) {
	local := NewPrefixes("", "", "")
	for _, binding := range prefixes.Snapshot() {
		local.Register(binding[0], binding[1])
	}

	var triples []Triple
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "@prefix") {
			pfx, ns, err := parsePrefixLine(line)
			if err != nil {
				return nil, fmt.Errorf("ontology line %d: %w", lineNo, err)
			}
			local.Register(pfx, ns)
			continue
		}
		t, err := parseTripleLine(line, local)
		if err != nil {
			return nil, fmt.Errorf("ontology line %d: %w", lineNo, err)
		}
		triples = append(triples, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ontology: %w", err)
	}
	return triples, nil
}

// LoadOntologyFile reads an ontology document from disk. A failure here is
// an external-service failure, reported at the call site that requested
// the load.
func LoadOntologyFile(path string, prefixes *Prefixes) ([]Triple, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ontology unreachable: %w", err)
	}
	defer f.Close()
	return LoadOntology(f, prefixes)
}

// AttachOntologyFile loads a domain ontology document and installs it as
// the externalOntology source for subsequent calls.
func (b *Bridge) AttachOntologyFile(path string) error {
	triples, err := LoadOntologyFile(path, b.prefixes)
	if err != nil {
		return err
	}
	b.ontology = triples
	return nil
}

// parsePrefixLine handles `@prefix name: <iri> .`.
func parsePrefixLine(line string) (string, string, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "@prefix"))
	rest = strings.TrimSuffix(strings.TrimSpace(rest), ".")
	rest = strings.TrimSpace(rest)
	idx := strings.Index(rest, ":")
	if idx <= 0 {
		return "", "", fmt.Errorf("malformed @prefix line")
	}
	pfx := rest[:idx]
	iri := strings.TrimSpace(rest[idx+1:])
	if !strings.HasPrefix(iri, "<") || !strings.HasSuffix(iri, ">") {
		return "", "", fmt.Errorf("prefix namespace must be an <iri>")
	}
	return pfx, iri[1 : len(iri)-1], nil
}

func parseTripleLine(line string, prefixes *Prefixes) (Triple, error) {
	tokens, err := lexQuery(line)
	if err != nil {
		return Triple{}, err
	}
	// Drop the statement terminator.
	if n := len(tokens); n > 0 && tokens[n-1] == "." {
		tokens = tokens[:n-1]
	}
	if len(tokens) != 3 {
		return Triple{}, fmt.Errorf("expected subject predicate object, got %d terms", len(tokens))
	}
	subject, err := prefixes.Expand(tokens[0])
	if err != nil {
		return Triple{}, err
	}
	predicate, err := prefixes.Expand(tokens[1])
	if err != nil {
		return Triple{}, err
	}
	object, err := prefixes.Expand(tokens[2])
	if err != nil {
		return Triple{}, err
	}
	return Triple{Subject: subject, Predicate: predicate, Object: object}, nil
}
