package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// ErrNoPrinter is returned when no printer matches a lookup
var ErrNoPrinter = errors.New("no matching printer")

// AmbiguousPrinterError is returned when a fuzzy lookup matches several printers equally well.
type AmbiguousPrinterError struct {
	Query   string
	Matches []string
}

func (e *AmbiguousPrinterError) Error() string {
	return fmt.Sprintf("printer %q is ambiguous: %s", e.Query, strings.Join(e.Matches, ", "))
}

// FindPrinter resolves a printer by exact key, exact nickname, or a fuzzy
// match against keys and nicknames. An empty query selects the default
// printer, or the only printer when exactly one is configured.
func (r *Registry) FindPrinter(query string) (string, *Printer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return r.defaultPrinter()
	}

	if p, ok := r.Printers[query]; ok {
		return query, p, nil
	}

	keys := r.Keys()
	for _, k := range keys {
		if strings.EqualFold(r.Printers[k].Nickname, query) {
			return k, r.Printers[k], nil
		}
	}

	// Candidates are matched by key and nickname; both map back to the key.
	var labels, owners []string
	for _, k := range keys {
		labels = append(labels, k)
		owners = append(owners, k)
		if nick := r.Printers[k].Nickname; nick != "" {
			labels = append(labels, nick)
			owners = append(owners, k)
		}
	}

	ranks := fuzzy.RankFindNormalizedFold(query, labels)
	if len(ranks) == 0 {
		return "", nil, fmt.Errorf("%w: %q", ErrNoPrinter, query)
	}

	best := ranks[0].Distance
	for _, rank := range ranks {
		if rank.Distance < best {
			best = rank.Distance
		}
	}

	seen := make(map[string]bool)
	var matches []string
	for _, rank := range ranks {
		if rank.Distance != best {
			continue
		}
		k := owners[rank.OriginalIndex]
		if !seen[k] {
			seen[k] = true
			matches = append(matches, k)
		}
	}

	if len(matches) > 1 {
		return "", nil, &AmbiguousPrinterError{Query: query, Matches: matches}
	}
	return matches[0], r.Printers[matches[0]], nil
}

func (r *Registry) defaultPrinter() (string, *Printer, error) {
	if r.Preferences != nil && r.Preferences.DefaultPrinter != "" {
		key := r.Preferences.DefaultPrinter
		if p, ok := r.Printers[key]; ok {
			return key, p, nil
		}
		return "", nil, fmt.Errorf("%w: default printer %q is not in the registry", ErrNoPrinter, key)
	}

	if len(r.Printers) == 1 {
		for k, p := range r.Printers {
			return k, p, nil
		}
	}
	return "", nil, ErrNoPrinter
}
