package outbound

import "context"

// ImageSharer is one save capability tried before falling back to a plain
// download. CanShare is the capability check; Share returns where the file
// ended up.
type ImageSharer interface {
	Name() string
	CanShare(ctx context.Context) bool
	Share(ctx context.Context, filename string, data []byte) (location string, err error)
}
