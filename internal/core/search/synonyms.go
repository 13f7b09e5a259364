package search

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Synonyms maps informal search terms (brand shorthand, symptoms) to the
// canonical ingredient or category terms they stand for. A Synonyms value is
// immutable once built and safe to share between goroutines.
type Synonyms struct {
	table map[string]string
}

// NewSynonyms builds a table from raw pairs. Keys and values are normalized;
// entries whose key or value normalizes to "" are dropped. The input map is
// copied.
func NewSynonyms(pairs map[string]string) Synonyms {
	table := make(map[string]string, len(pairs))
	for k, v := range pairs {
		nk, nv := Normalize(k), Normalize(v)
		if nk == "" || nv == "" {
			continue
		}
		table[nk] = nv
	}
	return Synonyms{table: table}
}

// Lookup returns the expansion for an already-normalized query.
func (s Synonyms) Lookup(query string) (string, bool) {
	v, ok := s.table[query]
	return v, ok
}

// Len returns the number of entries.
func (s Synonyms) Len() int {
	return len(s.table)
}

// Merge returns a new table holding s overlaid with extra.
func (s Synonyms) Merge(extra map[string]string) Synonyms {
	pairs := make(map[string]string, len(s.table)+len(extra))
	for k, v := range s.table {
		pairs[k] = v
	}
	for k, v := range extra {
		pairs[k] = v
	}
	return NewSynonyms(pairs)
}

// LoadSynonymsFile reads a flat YAML mapping of term -> expansion.
func LoadSynonymsFile(path string) (Synonyms, error) {
	pairs, err := readPairs(path)
	if err != nil {
		return Synonyms{}, err
	}
	return NewSynonyms(pairs), nil
}

// MergeFile returns s overlaid with the YAML mapping at path.
func (s Synonyms) MergeFile(path string) (Synonyms, error) {
	pairs, err := readPairs(path)
	if err != nil {
		return s, err
	}
	return s.Merge(pairs), nil
}

func readPairs(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read synonyms: %w", err)
	}
	var pairs map[string]string
	if err := yaml.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("parse synonyms %s: %w", path, err)
	}
	return pairs, nil
}

// DefaultSynonyms returns the table shipped with the service.
func DefaultSynonyms() Synonyms {
	return NewSynonyms(map[string]string{
		// shorthand
		"pcm":       "paracetamol",
		"apap":      "paracetamol acetaminophen",
		"asa":       "aspirin acetylsalicylic",
		"cipro":     "ciprofloxacin",
		"amox":      "amoxicillin",
		"augmentin": "amoxicillin clavulanate",
		"flagyl":    "metronidazole",
		"ors":       "oral rehydration salts",
		"ppi":       "omeprazole esomeprazole pantoprazole",
		"nsaid":     "ibuprofen diclofenac naproxen",
		"act":       "artemether lumefantrine artesunate",
		"vit c":     "ascorbic acid vitamin c",

		// symptoms
		"fever":        "paracetamol antipyretic",
		"headache":     "paracetamol ibuprofen analgesic",
		"pain":         "analgesic paracetamol ibuprofen",
		"malaria":      "antimalarial artemether lumefantrine",
		"cough":        "cough antitussive expectorant",
		"cold":         "antihistamine decongestant",
		"flu":          "paracetamol antihistamine decongestant",
		"allergy":      "antihistamine loratadine cetirizine",
		"diarrhea":     "oral rehydration salts loperamide",
		"diarrhoea":    "oral rehydration salts loperamide",
		"ulcer":        "omeprazole antacid",
		"heartburn":    "antacid omeprazole",
		"infection":    "antibiotic",
		"hypertension": "antihypertensive amlodipine lisinopril",
		"diabetes":     "antidiabetic metformin insulin",
		"worms":        "anthelmintic albendazole mebendazole",
	})
}
