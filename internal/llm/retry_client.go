package llm

import (
	"context"

	sderrors "servicedesk/internal/errors"
	"servicedesk/internal/logging"
)

// retryClient wraps a Client with bounded exponential-backoff retries for
// non-streaming completions.
type retryClient struct {
	underlying Client
	config     sderrors.RetryConfig
	logger     logging.Logger
}

// NewRetryClient wraps client with retry logic.
func NewRetryClient(client Client, config sderrors.RetryConfig) Client {
	return &retryClient{
		underlying: client,
		config:     config,
		logger:     logging.NewComponentLogger("LLMRetry"),
	}
}

func (c *retryClient) Model() string { return c.underlying.Model() }

func (c *retryClient) Complete(ctx context.Context, req Request) (string, error) {
	var result string
	err := sderrors.Retry(ctx, c.config, func(ctx context.Context) error {
		var callErr error
		result, callErr = c.underlying.Complete(ctx, req)
		return callErr
	}, c.logger)
	return result, err
}

// CompleteStream is not retried: replaying a stream after a mid-stream error
// would duplicate partial output. Callers fall back to their documented
// degradation path instead.
func (c *retryClient) CompleteStream(ctx context.Context, req Request) (<-chan StreamDelta, error) {
	return c.underlying.CompleteStream(ctx, req)
}
