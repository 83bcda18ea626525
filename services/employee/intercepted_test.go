package employee

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jfi/employee-api/internal/correlation"
	"github.com/jfi/employee-api/internal/intercept"
	"github.com/jfi/employee-api/internal/observability"
	"github.com/jfi/employee-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newInterceptedService(t *testing.T) (Service, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	svc, _ := newMemoryService(t)
	ic := intercept.New(observability.NewContextLogger(zap.New(core)))
	return NewInterceptedService(svc, ic), logs.FilterLoggerName("intercept")
}

func TestInterceptedService_FindAll(t *testing.T) {
	svc, logs := newInterceptedService(t)

	n := 0
	for _, err := range svc.FindAll(context.Background()) {
		require.NoError(t, err)
		n++
	}

	require.Equal(t, 3, n)
	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "EmployeeService.FindAll entering", logs.All()[0].Message)
	assert.Equal(t, "EmployeeService.FindAll completed", logs.All()[1].Message)
}

func TestInterceptedService_FailureCarriesToken(t *testing.T) {
	svc, logs := newInterceptedService(t)
	token := correlation.NewRegistry().Begin()
	ctx := correlation.Attach(context.Background(), token)
	id := uuid.New()

	_, err := svc.FindByID(ctx, id)
	require.Error(t, err)

	entries := logs.All()
	require.Len(t, entries, 2)
	failed := entries[1].ContextMap()
	assert.Equal(t, "failed", failed["event"])
	assert.Equal(t, err.Error(), failed["error"])
	assert.Equal(t, token.String(), failed["request_id"])
}

func TestInterceptedService_UpdateArgs(t *testing.T) {
	svc, logs := newInterceptedService(t)
	juan := uuid.MustParse("5d1c7a52-3c4e-4b9e-9a0b-1f2e3d4c5b6a")
	manager := models.EmployeeTypeManager

	_, err := svc.Update(context.Background(), juan, Changes{EmployeeType: &manager})
	require.NoError(t, err)

	entering := logs.All()[0].ContextMap()
	assert.Equal(t, "EmployeeService.Update", entering["operation"])
	assert.Equal(t, "["+juan.String()+" Changes(employeeType=MANAGER)]", entering["args"])
}
