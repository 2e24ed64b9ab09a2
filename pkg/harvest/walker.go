package harvest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"valavatar/pkg/chains"
	"valavatar/pkg/logger"
)

const (
	// DefaultPageSize is the pagination.limit sent with every listing request
	DefaultPageSize = 100

	validatorsPath = "/cosmos/staking/v1beta1/validators"
)

var errNoValidators = errors.New("page has no validators list")

// JSONGetter fetches a URL and decodes its JSON body into target
type JSONGetter interface {
	GetJSON(ctx context.Context, url string, target interface{}) error
}

// validatorsPage is one response of the staking validators listing
type validatorsPage struct {
	Validators json.RawMessage `json:"validators"`
	Pagination *struct {
		NextKey *string `json:"next_key"`
	} `json:"pagination"`
}

type validatorRecord struct {
	Description *struct {
		Identity string `json:"identity"`
	} `json:"description"`
}

func (p *validatorsPage) identities() ([]string, error) {
	if len(p.Validators) == 0 || string(p.Validators) == "null" {
		return nil, errNoValidators
	}

	var records []validatorRecord
	if err := json.Unmarshal(p.Validators, &records); err != nil {
		return nil, fmt.Errorf("malformed validators list: %w", err)
	}

	ids := make([]string, 0, len(records))
	for _, r := range records {
		if r.Description != nil {
			ids = append(ids, r.Description.Identity)
		}
	}
	return ids, nil
}

func (p *validatorsPage) nextKey() string {
	if p.Pagination == nil || p.Pagination.NextKey == nil {
		return ""
	}
	return *p.Pagination.NextKey
}

// cursor carries the continuation state of one walk
type cursor interface {
	apply(q url.Values)
	advance(nextKey string)
}

// keyCursor echoes the opaque next_key of the previous page
type keyCursor struct {
	key string
}

func (c *keyCursor) apply(q url.Values) {
	if c.key != "" {
		q.Set("pagination.key", c.key)
	}
}

func (c *keyCursor) advance(nextKey string) { c.key = nextKey }

// offsetCursor counts items, ignoring whatever the server returns
type offsetCursor struct {
	offset, step int
}

func (c *offsetCursor) apply(q url.Values) {
	q.Set("pagination.offset", strconv.Itoa(c.offset))
}

func (c *offsetCursor) advance(string) { c.offset += c.step }

func newCursor(d chains.Dialect, pageSize int) cursor {
	if d == chains.DialectOffset {
		return &offsetCursor{step: pageSize}
	}
	return &keyCursor{}
}

// WalkResult is the outcome of walking one endpoint
type WalkResult struct {
	Endpoint   chains.Endpoint
	Identities []string
	Pages      int
	// Err is set when the walk was cut short; Identities still holds what was gathered
	Err error
}

// Walker pages through one endpoint's validator listing
type Walker struct {
	client   JSONGetter
	pageSize int
	maxPages int
	logger   logger.Logger
}

// NewWalker creates a Walker. maxPages <= 0 means no page cap.
func NewWalker(client JSONGetter, pageSize, maxPages int, log logger.Logger) *Walker {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Walker{
		client:   client,
		pageSize: pageSize,
		maxPages: maxPages,
		logger:   logger.OrNop(log),
	}
}

// pageURL builds the listing URL for ep with the given continuation applied
func (w *Walker) pageURL(ep chains.Endpoint, cur cursor) string {
	q := url.Values{}
	q.Set("pagination.limit", strconv.Itoa(w.pageSize))
	cur.apply(q)
	return ep.BaseURL() + validatorsPath + "?" + q.Encode()
}

// Walk requests pages until next_key comes back empty. A failed page request
// ends the walk with Err set; a page without a usable validators list is
// skipped and the walk continues.
func (w *Walker) Walk(ctx context.Context, ep chains.Endpoint) WalkResult {
	result := WalkResult{Endpoint: ep}
	log := w.logger.WithFields(map[string]interface{}{
		"chain_id": ep.ChainID,
		"dialect":  ep.Dialect.String(),
	})
	cur := newCursor(ep.Dialect, w.pageSize)

	for page := 1; ; page++ {
		if w.maxPages > 0 && page > w.maxPages {
			log.WarnWithFields("page cap reached", map[string]interface{}{
				"max_pages": w.maxPages,
			})
			return result
		}
		if err := ctx.Err(); err != nil {
			result.Err = err
			return result
		}

		pageURL := w.pageURL(ep, cur)
		var resp validatorsPage
		if err := w.client.GetJSON(ctx, pageURL, &resp); err != nil {
			result.Err = fmt.Errorf("page %d: %w", page, err)
			return result
		}
		result.Pages = page

		ids, err := resp.identities()
		if err != nil {
			log.WithError(err).WarnWithFields("skipping page", map[string]interface{}{
				"page": page,
				"url":  pageURL,
			})
		} else {
			result.Identities = append(result.Identities, ids...)
		}
		logger.LogPageProgress(log, ep.ChainID, page, len(ids))

		next := resp.nextKey()
		if next == "" {
			return result
		}
		cur.advance(next)
	}
}
