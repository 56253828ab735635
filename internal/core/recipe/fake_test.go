package recipe

import (
	"context"

	"github.com/JustynaSek/Fridge-To-Feast/internal/core/ai/provider"
)

// fakeChat 回傳固定內容的對話客戶端
type fakeChat struct {
	content  string
	chunks   []string
	err      error
	requests []*provider.Request
}

func (f *fakeChat) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &provider.Response{Content: f.content}, nil
}

func (f *fakeChat) Stream(ctx context.Context, req *provider.Request, onDelta provider.DeltaFunc) error {
	f.requests = append(f.requests, req)
	for _, chunk := range f.chunks {
		if err := onDelta(chunk); err != nil {
			return err
		}
	}
	return f.err
}
