package audio

import "context"

// SourceResolver maps a track's source reference onto something the output
// can open, e.g. a presigned object URL.
type SourceResolver interface {
	Resolve(ctx context.Context, src string) (string, error)
}

// Passthrough returns sources unchanged.
type Passthrough struct{}

func (Passthrough) Resolve(_ context.Context, src string) (string, error) { return src, nil }
