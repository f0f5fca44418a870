package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/nemde-api/jobs-api/internal/domain/model"
	apperrors "github.com/nemde-api/jobs-api/internal/errors"
	"github.com/nemde-api/jobs-api/internal/mocks"
)

func newTestReconciler(t *testing.T) (*ReconcilerService, *mocks.MockJobStore) {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := mocks.NewMockJobStore(ctrl)
	jobs, err := NewJobService(JobServiceOptions{Store: store})
	require.NoError(t, err)
	rec, err := NewReconcilerService(ReconcilerServiceOptions{Store: store, Jobs: jobs})
	require.NoError(t, err)
	return rec, store
}

func TestNewReconcilerServiceValidation(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockJobStore(ctrl)
	jobs, err := NewJobService(JobServiceOptions{Store: store})
	require.NoError(t, err)

	_, err = NewReconcilerService(ReconcilerServiceOptions{Jobs: jobs})
	assert.Error(t, err)

	_, err = NewReconcilerService(ReconcilerServiceOptions{Store: store})
	assert.Error(t, err)

	rec, err := NewReconcilerService(ReconcilerServiceOptions{Store: store, Jobs: jobs})
	require.NoError(t, err)
	assert.Equal(t, DefaultReconcileSchedule, rec.schedule)
}

func TestSweepReclaimsOrphansOnly(t *testing.T) {
	rec, store := newTestReconciler(t)

	store.EXPECT().ScanJobIDs(gomock.Any()).Return([]string{"live", "orphan"}, nil)
	store.EXPECT().FetchMeta(gomock.Any(), "live").
		Return(&model.JobMeta{CreatedBy: "u1@example.com"}, nil)
	store.EXPECT().FetchMeta(gomock.Any(), "orphan").Return(nil, nil)
	store.EXPECT().Cancel(gomock.Any(), "orphan").Return(nil)
	store.EXPECT().Delete(gomock.Any(), "orphan").Return(nil)

	require.NoError(t, rec.Sweep(context.Background()))
}

func TestSweepToleratesPerRecordFailures(t *testing.T) {
	rec, store := newTestReconciler(t)

	store.EXPECT().ScanJobIDs(gomock.Any()).Return([]string{"broken", "stuck", "orphan"}, nil)
	store.EXPECT().FetchMeta(gomock.Any(), "broken").
		Return(nil, apperrors.Store("read failed"))
	store.EXPECT().FetchMeta(gomock.Any(), "stuck").Return(nil, nil)
	store.EXPECT().Cancel(gomock.Any(), "stuck").
		Return(apperrors.Store("cancel failed"))
	store.EXPECT().FetchMeta(gomock.Any(), "orphan").Return(nil, nil)
	store.EXPECT().Cancel(gomock.Any(), "orphan").Return(nil)
	store.EXPECT().Delete(gomock.Any(), "orphan").Return(nil)

	require.NoError(t, rec.Sweep(context.Background()))
}

func TestSweepScanFailure(t *testing.T) {
	rec, store := newTestReconciler(t)

	store.EXPECT().ScanJobIDs(gomock.Any()).Return(nil, apperrors.Store("scan failed"))
	assert.Error(t, rec.Sweep(context.Background()))
}
