package analysis

import "context"

// ObjectStore port (interface untuk binary blob persistence)
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, string, error)
	Remove(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// Vision port (interface untuk the remote generative model)
type Vision interface {
	Analyze(ctx context.Context, image []byte, contentType string) (string, error)
}

// History port (interface untuk analysis record persistence)
type History interface {
	Save(ctx context.Context, a *Analysis) error
	Latest(ctx context.Context, limit int) ([]*Analysis, error)
}
