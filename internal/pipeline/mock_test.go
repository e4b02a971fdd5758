package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type mockDownloader struct {
	mock.Mock
}

func (m *mockDownloader) Download(ctx context.Context, rawURL, dest string) (int64, error) {
	args := m.Called(ctx, rawURL, dest)
	return args.Get(0).(int64), args.Error(1)
}

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) UploadDir(ctx context.Context, dir, rawURL string) ([]string, error) {
	args := m.Called(ctx, dir, rawURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, configPath string) error {
	args := m.Called(ctx, configPath)
	return args.Error(0)
}
