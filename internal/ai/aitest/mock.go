// Package aitest provides a testify mock of ai.Client.
package aitest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/mr1hm/go-disaster-v2v/internal/ai"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) Complete(ctx context.Context, req ai.Request) (*ai.Response, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*ai.Response), args.Error(1)
	}
	return nil, args.Error(1)
}

// Reply is a convenience for Return values.
func Reply(text string) *ai.Response {
	return &ai.Response{Text: text, Model: "test-model", StopReason: "end_turn"}
}
