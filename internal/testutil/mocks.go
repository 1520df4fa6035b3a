package testutil

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/oksasatya/student-store/pkg/mailer"
)

// MockBlobStore is a testify mock of repository.BlobStore.
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, data, contentType)
	return args.String(0), args.Error(1)
}

// Publisher records published email jobs.
type Publisher struct {
	mu   sync.Mutex
	Jobs []mailer.EmailJob
	Err  error
}

func (p *Publisher) PublishJSON(_ context.Context, body any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	if job, ok := body.(mailer.EmailJob); ok {
		p.Jobs = append(p.Jobs, job)
	}
	return nil
}

func (p *Publisher) Published() []mailer.EmailJob {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]mailer.EmailJob(nil), p.Jobs...)
}
