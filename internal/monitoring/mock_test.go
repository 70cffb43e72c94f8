package monitoring

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/competitor-intel/internal/model"
)

type mockCounter struct {
	mock.Mock
}

func (m *mockCounter) CountByStatus(ctx context.Context, since time.Time) (map[model.RunStatus]int, error) {
	args := m.Called(ctx, since)
	counts, _ := args.Get(0).(map[model.RunStatus]int)
	return counts, args.Error(1)
}
