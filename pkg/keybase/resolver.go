package keybase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	apperrors "valavatar/pkg/errors"
	"valavatar/pkg/logger"
	"valavatar/pkg/ratelimit"
)

// DefaultBaseURL is the public Keybase API root
const DefaultBaseURL = "https://keybase.io/_/api/1.0"

// ErrUnresolvable marks an identity that has no downloadable avatar
var ErrUnresolvable = errors.New("identity unresolvable")

// JSONGetter fetches a URL and decodes its JSON body into target
type JSONGetter interface {
	GetJSON(ctx context.Context, url string, target interface{}) error
}

// Result is a resolved identity
type Result struct {
	Identity    string
	Fingerprint string
	ImageURL    string
	// Path is where the avatar should be written: <dir>/<identity>.<ext>
	Path string
}

// Options configures a Resolver
type Options struct {
	BaseURL   string
	OutputDir string
	Limiter   ratelimit.Limiter
}

// Resolver performs the two-hop identity lookup. It holds no per-identity
// state and is safe for concurrent use.
type Resolver struct {
	client    JSONGetter
	baseURL   string
	outputDir string
	limiter   ratelimit.Limiter
	logger    logger.Logger
}

// NewResolver creates a Resolver
func NewResolver(client JSONGetter, opts Options, log logger.Logger) *Resolver {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited{}
	}
	return &Resolver{
		client:    client,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		outputDir: opts.OutputDir,
		limiter:   opts.Limiter,
		logger:    logger.OrNop(log),
	}
}

type keyFetchResponse struct {
	Keys []struct {
		Fingerprint string `json:"fingerprint"`
	} `json:"keys"`
}

type userLookupResponse struct {
	Them json.RawMessage `json:"them"`
}

type profile struct {
	Pictures *struct {
		Primary *struct {
			URL string `json:"url"`
		} `json:"primary"`
	} `json:"pictures"`
}

func (p *profile) pictureURL() string {
	if p == nil || p.Pictures == nil || p.Pictures.Primary == nil {
		return ""
	}
	return p.Pictures.Primary.URL
}

// Resolve maps identity to its avatar URL and target file path. Failures wrap
// ErrUnresolvable, except context cancellation which is returned as is.
func (r *Resolver) Resolve(ctx context.Context, identity string) (Result, error) {
	res := Result{Identity: identity}

	if err := checkIdentity(identity); err != nil {
		return res, r.fail(ctx, identity, err)
	}

	fingerprint, err := r.fingerprint(ctx, identity)
	if err != nil {
		return res, r.fail(ctx, identity, err)
	}
	res.Fingerprint = fingerprint

	imageURL, err := r.pictureURL(ctx, fingerprint)
	if err != nil {
		return res, r.fail(ctx, identity, err)
	}
	res.ImageURL = imageURL

	res.Path, err = FilePath(r.outputDir, identity, imageURL)
	if err != nil {
		return res, r.fail(ctx, identity, err)
	}

	logger.LogResolution(r.logger, identity, imageURL, nil)
	return res, nil
}

func (r *Resolver) fail(ctx context.Context, identity string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	err = unresolvable(identity, err)
	logger.LogResolution(r.logger, identity, "", err)
	return err
}

func (r *Resolver) fingerprint(ctx context.Context, identity string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}

	u := r.baseURL + "/key/fetch.json?" + url.Values{"pgp_key_ids": {identity}}.Encode()
	var resp keyFetchResponse
	if err := r.client.GetJSON(ctx, u, &resp); err != nil {
		return "", fmt.Errorf("key fetch: %w", err)
	}
	if len(resp.Keys) == 0 || resp.Keys[0].Fingerprint == "" {
		return "", errors.New("no key for identity")
	}
	return resp.Keys[0].Fingerprint, nil
}

func (r *Resolver) pictureURL(ctx context.Context, fingerprint string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}

	u := r.baseURL + "/user/lookup.json?" + url.Values{"key_fingerprint": {fingerprint}}.Encode()
	var resp userLookupResponse
	if err := r.client.GetJSON(ctx, u, &resp); err != nil {
		return "", fmt.Errorf("user lookup: %w", err)
	}

	p, err := firstProfile(resp.Them)
	if err != nil {
		return "", err
	}
	if pic := p.pictureURL(); pic != "" {
		return pic, nil
	}
	return "", errors.New("profile has no primary picture")
}

// firstProfile accepts them as a list, as an object keyed "0" or as a bare object
func firstProfile(raw json.RawMessage) (*profile, error) {
	raw = json.RawMessage(strings.TrimSpace(string(raw)))
	if len(raw) == 0 || string(raw) == "null" {
		return nil, errors.New("lookup returned no profile")
	}

	if raw[0] == '[' {
		var list []*profile
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("malformed profile list: %w", err)
		}
		if len(list) == 0 || list[0] == nil {
			return nil, errors.New("lookup returned no profile")
		}
		return list[0], nil
	}

	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keyed); err != nil {
		return nil, fmt.Errorf("malformed profile: %w", err)
	}
	if first, ok := keyed["0"]; ok {
		var p profile
		if err := json.Unmarshal(first, &p); err == nil && p.pictureURL() != "" {
			return &p, nil
		}
	}

	var p profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("malformed profile: %w", err)
	}
	return &p, nil
}

// FilePath derives <dir>/<identity>.<ext>, ext being the text after the last
// '.' in the image URL's path.
func FilePath(dir, identity, imageURL string) (string, error) {
	if err := checkIdentity(identity); err != nil {
		return "", err
	}

	u, err := url.Parse(imageURL)
	if err != nil {
		return "", fmt.Errorf("bad image url: %w", err)
	}
	ext := strings.TrimPrefix(path.Ext(u.Path), ".")
	if ext == "" {
		return "", fmt.Errorf("image url %q has no extension", imageURL)
	}

	return filepath.Join(dir, identity+"."+ext), nil
}

// checkIdentity rejects identities that cannot safely name a file
func checkIdentity(identity string) error {
	switch {
	case strings.TrimSpace(identity) == "":
		return errors.New("blank identity")
	case strings.ContainsAny(identity, `/\`), identity == "." || identity == "..":
		return fmt.Errorf("identity %q is not a safe file name", identity)
	}
	return nil
}

func unresolvable(identity string, cause error) error {
	return apperrors.New(apperrors.KindUnresolvable, "resolve "+identity, "",
		fmt.Errorf("%w: %w", ErrUnresolvable, cause))
}
