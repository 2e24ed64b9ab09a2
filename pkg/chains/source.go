package chains

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"valavatar/pkg/logger"
)

// JSONGetter fetches a URL and decodes its JSON body into target
type JSONGetter interface {
	GetJSON(ctx context.Context, url string, target interface{}) error
}

// Options configures a Source
type Options struct {
	// DirectoryURL serves a document shaped {network: {chain: {chainID, lcd}}}
	DirectoryURL string
	Network      string
	SkipChains   []string
	OffsetLCDs   []string
	OffsetChains []string
}

// chainInfo is the subset of directory metadata we read
type chainInfo struct {
	ChainID string `json:"chainID"`
	LCD     string `json:"lcd"`
}

// Source builds the endpoint list from the remote chain directory
type Source struct {
	client       JSONGetter
	directoryURL string
	network      string
	skip         map[string]bool
	offsetLCDs   map[string]bool
	offsetChains map[string]bool
	validate     *validator.Validate
	logger       logger.Logger
}

// NewSource creates a Source
func NewSource(client JSONGetter, opts Options, log logger.Logger) *Source {
	return &Source{
		client:       client,
		directoryURL: opts.DirectoryURL,
		network:      opts.Network,
		skip:         toSet(opts.SkipChains, verbatim),
		offsetLCDs:   toSet(opts.OffsetLCDs, normalizeLCD),
		offsetChains: toSet(opts.OffsetChains, verbatim),
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		logger:       logger.OrNop(log),
	}
}

// Endpoints fetches the directory and returns the usable endpoints sorted by
// chain ID. Skipped chains, invalid entries and duplicate LCDs are dropped.
// An error is returned only when the directory itself cannot be read.
func (s *Source) Endpoints(ctx context.Context) ([]Endpoint, error) {
	var doc map[string]map[string]chainInfo
	if err := s.client.GetJSON(ctx, s.directoryURL, &doc); err != nil {
		return nil, fmt.Errorf("failed to fetch chain directory: %w", err)
	}

	chains, ok := doc[s.network]
	if !ok {
		return nil, fmt.Errorf("network %q not found in chain directory", s.network)
	}

	keys := make([]string, 0, len(chains))
	for key := range chains {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	seen := make(map[string]bool)
	endpoints := make([]Endpoint, 0, len(keys))
	for _, key := range keys {
		info := chains[key]
		chainID := info.ChainID
		if chainID == "" {
			chainID = key
		}

		if s.skip[chainID] {
			s.logger.InfoWithFields("skipping chain", map[string]interface{}{
				"chain_id": chainID,
			})
			continue
		}

		ep := Endpoint{
			Network: s.network,
			ChainID: chainID,
			LCD:     strings.TrimSpace(info.LCD),
			Dialect: s.dialectFor(chainID, info.LCD),
		}
		if err := s.validate.Struct(ep); err != nil {
			s.logger.WarnWithFields("ignoring invalid chain entry", map[string]interface{}{
				"chain_id": chainID,
				"lcd":      info.LCD,
				"error":    err.Error(),
			})
			continue
		}

		base := normalizeLCD(ep.LCD)
		if seen[base] {
			s.logger.DebugWithFields("duplicate LCD ignored", map[string]interface{}{
				"chain_id": chainID,
				"lcd":      ep.LCD,
			})
			continue
		}
		seen[base] = true
		endpoints = append(endpoints, ep)
	}

	s.logger.InfoWithFields("chain directory loaded", map[string]interface{}{
		"network":   s.network,
		"listed":    len(chains),
		"endpoints": len(endpoints),
	})
	return endpoints, nil
}

func (s *Source) dialectFor(chainID, lcd string) Dialect {
	if s.offsetChains[chainID] || s.offsetLCDs[normalizeLCD(lcd)] {
		return DialectOffset
	}
	return DialectCursor
}

func normalizeLCD(lcd string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(lcd), "/"))
}

func verbatim(s string) string { return s }

func toSet(values []string, norm func(string) string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[norm(v)] = true
	}
	return set
}
