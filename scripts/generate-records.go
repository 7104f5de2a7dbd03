//go:build ignore

// Package main generates a synthetic records tree for trying out indexing
// and task checkpointing at scale.
// Usage: go run scripts/generate-records.go -records 500 -output testdata/records
//
// Attachments are plain text with a .pdf name. Point tools.pdftotext at a
// script that prints its fourth argument to index them without poppler.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	numRecords = flag.Int("records", 100, "Number of records to generate")
	maxFiles   = flag.Int("files", 3, "Maximum attachments per record")
	fileField  = flag.String("field", "pdf_file", "Attachment subdirectory name")
	outputDir  = flag.String("output", "testdata/records", "Output directory")
	seed       = flag.Int64("seed", 42, "Random seed for reproducibility")
)

var (
	templates = []string{"report", "invoice", "contract", "minutes", "manual"}
	subjects  = []string{"revenue", "budget", "supplier", "warranty", "audit", "payroll", "inventory", "shipment", "licence", "maintenance"}
	regions   = []string{"north", "south", "east", "west", "central"}
	verbs     = []string{"increased", "declined", "was approved", "was reviewed", "remains open", "was renewed"}
)

const recordTemplate = `title: %s %d
template: %s
author_ref: %d
fields:
  region: %s
  year: "%d"
`

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	fmt.Printf("Generating %d records in %s...\n", *numRecords, *outputDir)

	files := 0
	for id := 1; id <= *numRecords; id++ {
		n, err := generateRecord(rng, id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "record %d: %v\n", id, err)
			os.Exit(1)
		}
		files += n
	}

	fmt.Printf("Generated %d records with %d attachments.\n", *numRecords, files)
}

func pick(rng *rand.Rand, pool []string) string {
	return pool[rng.Intn(len(pool))]
}

func generateRecord(rng *rand.Rand, id int) (int, error) {
	dir := filepath.Join(*outputDir, strconv.Itoa(id))
	attDir := filepath.Join(dir, *fileField)
	if err := os.MkdirAll(attDir, 0o755); err != nil {
		return 0, err
	}

	tmpl := pick(rng, templates)
	meta := fmt.Sprintf(recordTemplate,
		strings.ToUpper(tmpl[:1])+tmpl[1:], id,
		tmpl,
		1+rng.Intn(20),
		pick(rng, regions),
		2018+rng.Intn(8),
	)
	if err := os.WriteFile(filepath.Join(dir, "record.yaml"), []byte(meta), 0o644); err != nil {
		return 0, err
	}

	// some records have no attachments, which selectors like files>0 skip
	n := rng.Intn(*maxFiles + 1)
	for i := 1; i <= n; i++ {
		name := fmt.Sprintf("%s-%d-%d.pdf", tmpl, id, i)
		if err := os.WriteFile(filepath.Join(attDir, name), []byte(paragraphs(rng, 3+rng.Intn(5))), 0o644); err != nil {
			return 0, err
		}
	}
	return n, nil
}

func paragraphs(rng *rand.Rand, count int) string {
	var sb strings.Builder
	for range count {
		fmt.Fprintf(&sb, "The %s for the %s region %s. ", pick(rng, subjects), pick(rng, regions), pick(rng, verbs))
		fmt.Fprintf(&sb, "Follow-up on %s and %s is scheduled.\n\n", pick(rng, subjects), pick(rng, subjects))
	}
	return sb.String()
}
