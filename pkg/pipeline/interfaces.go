package pipeline

import (
	"context"

	"valavatar/internal/downloader"
	"valavatar/pkg/chains"
	"valavatar/pkg/harvest"
	"valavatar/pkg/keybase"
)

// EndpointSource lists the LCD endpoints to walk
type EndpointSource interface {
	Endpoints(ctx context.Context) ([]chains.Endpoint, error)
}

// IdentityHarvester walks endpoints and collects their identities
type IdentityHarvester interface {
	Harvest(ctx context.Context, endpoints []chains.Endpoint) (*harvest.IdentitySet, []harvest.WalkResult)
}

// IdentityResolver maps an identity to its avatar
type IdentityResolver interface {
	Resolve(ctx context.Context, identity string) (keybase.Result, error)
}

// ImageDownloader stores one image durably
type ImageDownloader interface {
	Download(ctx context.Context, url, path string) (downloader.Result, error)
}
