package loader

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/model-viewer/internal/scene"
)

// DefaultColor is the neutral gray (#999999) given to geometry without material data.
var DefaultColor = [4]float32{0.6, 0.6, 0.6, 1.0}

// Decoder turns a fetched resource into that format's scene node.
// Implementations must not retain or share the returned node.
type Decoder interface {
	Decode(res *Resource) (*scene.Node, error)
}

// Loader dispatches references to the decoder registered for their FormatTag.
type Loader struct {
	fetcher  Fetcher
	decoders map[FormatTag]Decoder
	log      *zap.Logger
	fallback scene.Material
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger used for load diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(l *Loader) {
		if log != nil {
			l.log = log
		}
	}
}

// WithDefaultColor overrides the color assigned to material-less geometry.
func WithDefaultColor(rgba [4]float32) Option {
	return func(l *Loader) {
		l.fallback.BaseColor = rgba
	}
}

// New creates a Loader reading bytes through fetcher.
func New(fetcher Fetcher, opts ...Option) *Loader {
	l := &Loader{
		fetcher: fetcher,
		log:     zap.NewNop(),
		fallback: scene.Material{
			Name:      "default",
			BaseColor: DefaultColor,
			Default:   true,
		},
	}
	for _, opt := range opts {
		opt(l)
	}

	l.decoders = map[FormatTag]Decoder{
		FormatMeshWithMaterials: stlDecoder{fallback: l.fallback},
		FormatSceneGraph:        gltfDecoder{fallback: l.fallback},
		FormatTaggedMesh:        objDecoder{fallback: l.fallback, log: l.log},
	}
	return l
}

// Load fetches and decodes ref, returning a new root node recentered on its bounding box.
// Errors are *UnsupportedFormatError, *FetchError or *DecodeError, or the context's error.
func (l *Loader) Load(ctx context.Context, ref string) (*scene.Node, error) {
	tag, err := FormatOf(ref)
	if err != nil {
		return nil, err
	}
	dec, ok := l.decoders[tag]
	if !ok {
		return nil, &UnsupportedFormatError{Reference: ref, Suffix: Suffix(ref)}
	}

	start := time.Now()

	data, err := l.fetcher.Fetch(ctx, ref)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &FetchError{Reference: ref, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Resource{Reference: ref, Data: data, ctx: ctx, fetcher: l.fetcher}
	node, err := dec.Decode(res)
	if err != nil {
		var decErr *DecodeError
		if errors.As(err, &decErr) {
			return nil, err
		}
		return nil, &DecodeError{Reference: ref, Format: tag, Err: err}
	}
	if node.MeshCount() == 0 {
		return nil, &DecodeError{Reference: ref, Format: tag, Err: errors.New("no drawable geometry")}
	}

	root := scene.Center(node)

	l.log.Debug("model loaded",
		zap.String("ref", ref),
		zap.Stringer("format", tag),
		zap.Int("bytes", len(data)),
		zap.Int("meshes", root.MeshCount()),
		zap.Int("triangles", root.TriangleCount()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return root, nil
}
