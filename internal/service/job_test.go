package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/nemde-api/jobs-api/internal/domain/model"
	apperrors "github.com/nemde-api/jobs-api/internal/errors"
	"github.com/nemde-api/jobs-api/internal/mocks"
	"github.com/nemde-api/jobs-api/internal/observability/metrics"
)

func newTestJobService(t *testing.T) (*JobService, *mocks.MockJobStore) {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := mocks.NewMockJobStore(ctrl)
	svc, err := NewJobService(JobServiceOptions{Store: store})
	require.NoError(t, err)
	return svc, store
}

func TestNewJobServiceRequiresStore(t *testing.T) {
	_, err := NewJobService(JobServiceOptions{})
	assert.Error(t, err)
}

func TestNewJobServiceDefaults(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc, err := NewJobService(JobServiceOptions{Store: mocks.NewMockJobStore(ctrl)})
	require.NoError(t, err)
	assert.Equal(t, DefaultJobTimeout, svc.timeout)
	assert.Equal(t, DefaultRetention, svc.retention)
}

func TestAdmit(t *testing.T) {
	svc, store := newTestJobService(t)
	ctx := context.Background()

	var created *model.JobRecord
	store.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec *model.JobRecord) error {
			created = rec
			return nil
		})
	store.EXPECT().Enqueue(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec *model.JobRecord) error {
			now := time.Now().UTC()
			rec.EnqueuedAt = &now
			return nil
		})

	receipt, err := svc.Admit(ctx, "u1@example.com",
		[]byte(`{"case_id": "20201101123", "options": {"label": "rerun-7"}}`))
	require.NoError(t, err)

	require.NotNil(t, created)
	assert.Equal(t, "nemde.core.model.execution.run_model", created.Func)
	assert.Equal(t, model.JobStatusQueued, created.Status)
	assert.Equal(t, "u1@example.com", created.Meta.CreatedBy)
	assert.Equal(t, "rerun-7", created.Meta.Label)
	assert.Equal(t, DefaultJobTimeout, created.Timeout)
	assert.Equal(t, DefaultRetention, created.ResultTTL)
	assert.Equal(t, DefaultRetention, created.FailureTTL)

	assert.Equal(t, created.ID, receipt.JobID)
	assert.Equal(t, model.JobStatusQueued, receipt.Status)
	assert.EqualValues(t, 180, receipt.Timeout)
	assert.Equal(t, "rerun-7", receipt.Label)
	assert.NotNil(t, receipt.EnqueuedAt)
}

func TestAdmitValidationFailureTouchesNoStore(t *testing.T) {
	svc, _ := newTestJobService(t)

	_, err := svc.Admit(context.Background(), "u1@example.com",
		[]byte(`{"case_id": "1", "priority": "high"}`))
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestAdmitEnqueueFailureRemovesRecord(t *testing.T) {
	svc, store := newTestJobService(t)

	var createdID string
	store.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec *model.JobRecord) error {
			createdID = rec.ID
			return nil
		})
	store.EXPECT().Enqueue(gomock.Any(), gomock.Any()).
		Return(apperrors.Engine("enqueue failed"))
	store.EXPECT().Delete(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, id string) error {
			assert.Equal(t, createdID, id)
			return nil
		})

	_, err := svc.Admit(context.Background(), "u1@example.com", []byte(`{"case_id": "1"}`))
	require.Error(t, err)
	assert.True(t, apperrors.IsEngine(err))
}

func TestGetStatus(t *testing.T) {
	svc, store := newTestJobService(t)
	created := time.Date(2020, 11, 1, 12, 0, 0, 0, time.UTC)

	store.EXPECT().Fetch(gomock.Any(), "job-1").Return(&model.JobRecord{
		ID:        "job-1",
		Status:    model.JobStatusStarted,
		CreatedAt: created,
		Timeout:   180 * time.Second,
		Meta:      model.JobMeta{CreatedBy: "u1@example.com"},
	}, nil)

	view, err := svc.GetStatus(context.Background(), "u1@example.com", "job-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", view.JobID)
	assert.Equal(t, model.JobStatusStarted, view.Status)
	assert.Equal(t, created, view.CreatedAt)
}

func TestGetStatusForeignCaller(t *testing.T) {
	svc, store := newTestJobService(t)

	store.EXPECT().Fetch(gomock.Any(), "job-1").Return(&model.JobRecord{
		ID:   "job-1",
		Meta: model.JobMeta{CreatedBy: "u1@example.com"},
	}, nil)

	_, err := svc.GetStatus(context.Background(), "u2@example.com", "job-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsPermission(err))
}

func TestGetStatusUnknownJob(t *testing.T) {
	svc, store := newTestJobService(t)

	store.EXPECT().Fetch(gomock.Any(), "missing").
		Return(nil, apperrors.NotFoundf("no job with id %s", "missing"))

	_, err := svc.GetStatus(context.Background(), "u1@example.com", "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGetResultsMasksFailureInfo(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockJobStore(ctrl)
	sink := mocks.NewMockDiagnosticsSink(ctrl)
	svc, err := NewJobService(JobServiceOptions{Store: store, Diagnostics: sink})
	require.NoError(t, err)

	const rawTrace = "Traceback (most recent call last): solver exploded"
	store.EXPECT().Fetch(gomock.Any(), "job-1").Return(&model.JobRecord{
		ID:          "job-1",
		Status:      model.JobStatusFailed,
		Meta:        model.JobMeta{CreatedBy: "u1@example.com"},
		FailureInfo: rawTrace,
	}, nil)
	sink.EXPECT().Record(gomock.Any(), "job-1", rawTrace).Return(nil)

	view, err := svc.GetResults(context.Background(), "u1@example.com", "job-1")
	require.NoError(t, err)
	assert.Equal(t, "Error processing job", view.FailureInfo)
	assert.NotContains(t, view.FailureInfo, "Traceback")
}

func TestGetResultsSinkFailureIsBestEffort(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockJobStore(ctrl)
	sink := mocks.NewMockDiagnosticsSink(ctrl)
	svc, err := NewJobService(JobServiceOptions{Store: store, Diagnostics: sink})
	require.NoError(t, err)

	store.EXPECT().Fetch(gomock.Any(), "job-1").Return(&model.JobRecord{
		ID:          "job-1",
		Status:      model.JobStatusFailed,
		Meta:        model.JobMeta{CreatedBy: "u1@example.com"},
		FailureInfo: "boom",
	}, nil)
	sink.EXPECT().Record(gomock.Any(), "job-1", "boom").Return(errors.New("db down"))

	view, err := svc.GetResults(context.Background(), "u1@example.com", "job-1")
	require.NoError(t, err)
	assert.Equal(t, "Error processing job", view.FailureInfo)
}

func TestGetResultsFinished(t *testing.T) {
	svc, store := newTestJobService(t)

	result := json.RawMessage(`{"TraderSolution": []}`)
	store.EXPECT().Fetch(gomock.Any(), "job-1").Return(&model.JobRecord{
		ID:     "job-1",
		Status: model.JobStatusFinished,
		Meta:   model.JobMeta{CreatedBy: "u1@example.com"},
		Result: result,
	}, nil)

	view, err := svc.GetResults(context.Background(), "u1@example.com", "job-1")
	require.NoError(t, err)
	assert.Empty(t, view.FailureInfo)
	assert.Equal(t, result, view.Result)
}

func TestListStatuses(t *testing.T) {
	svc, store := newTestJobService(t)
	base := time.Date(2020, 11, 1, 12, 0, 0, 0, time.UTC)

	// mine-old and mine-new belong to the caller, foreign to someone else,
	// and orphan has lost its metadata entirely.
	store.EXPECT().ScanJobIDs(gomock.Any()).
		Return([]string{"mine-old", "foreign", "orphan", "mine-new"}, nil)

	store.EXPECT().FetchMeta(gomock.Any(), "mine-old").
		Return(&model.JobMeta{CreatedBy: "u1@example.com"}, nil)
	store.EXPECT().FetchMeta(gomock.Any(), "foreign").
		Return(&model.JobMeta{CreatedBy: "u2@example.com"}, nil)
	store.EXPECT().FetchMeta(gomock.Any(), "orphan").Return(nil, nil)
	store.EXPECT().FetchMeta(gomock.Any(), "mine-new").
		Return(&model.JobMeta{CreatedBy: "u1@example.com"}, nil)

	store.EXPECT().Cancel(gomock.Any(), "orphan").Return(nil)
	store.EXPECT().Delete(gomock.Any(), "orphan").Return(nil)

	store.EXPECT().FetchStatusFields(gomock.Any(), "mine-old").Return(&model.JobRecord{
		ID: "mine-old", Status: model.JobStatusFinished, CreatedAt: base,
	}, nil)
	store.EXPECT().FetchStatusFields(gomock.Any(), "mine-new").Return(&model.JobRecord{
		ID: "mine-new", Status: model.JobStatusQueued, CreatedAt: base.Add(time.Hour),
	}, nil)

	views, err := svc.ListStatuses(context.Background(), "u1@example.com")
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "mine-new", views[0].JobID)
	assert.Equal(t, "mine-old", views[1].JobID)
}

func TestListStatusesSkipsBrokenRecords(t *testing.T) {
	svc, store := newTestJobService(t)

	store.EXPECT().ScanJobIDs(gomock.Any()).Return([]string{"broken", "ok"}, nil)
	store.EXPECT().FetchMeta(gomock.Any(), "broken").
		Return(nil, apperrors.Store("read failed"))
	store.EXPECT().FetchMeta(gomock.Any(), "ok").
		Return(&model.JobMeta{CreatedBy: "u1@example.com"}, nil)
	store.EXPECT().FetchStatusFields(gomock.Any(), "ok").
		Return(&model.JobRecord{ID: "ok", Status: model.JobStatusQueued}, nil)

	views, err := svc.ListStatuses(context.Background(), "u1@example.com")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "ok", views[0].JobID)
}

func TestListStatusesScanFailure(t *testing.T) {
	svc, store := newTestJobService(t)

	store.EXPECT().ScanJobIDs(gomock.Any()).Return(nil, apperrors.Store("scan failed"))

	_, err := svc.ListStatuses(context.Background(), "u1@example.com")
	require.Error(t, err)
	assert.True(t, apperrors.IsStore(err))
}

func TestDelete(t *testing.T) {
	svc, store := newTestJobService(t)

	store.EXPECT().Fetch(gomock.Any(), "job-1").Return(&model.JobRecord{
		ID:   "job-1",
		Meta: model.JobMeta{CreatedBy: "u1@example.com"},
	}, nil)
	gomock.InOrder(
		store.EXPECT().Cancel(gomock.Any(), "job-1").Return(nil),
		store.EXPECT().Delete(gomock.Any(), "job-1").Return(nil),
	)

	require.NoError(t, svc.Delete(context.Background(), "u1@example.com", "job-1"))
}

func TestDeleteUnknownJob(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockJobStore(ctrl)
	m := metrics.NewJobMetrics(prometheus.NewRegistry())
	svc, err := NewJobService(JobServiceOptions{Store: store, Metrics: m})
	require.NoError(t, err)

	store.EXPECT().Fetch(gomock.Any(), "missing").
		Return(nil, apperrors.NotFound("job not found"))

	err = svc.Delete(context.Background(), "u1@example.com", "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	// An unknown id is a client miss, not a backend fault.
	assert.InDelta(t, 1, testutil.ToFloat64(m.Deletions.WithLabelValues(metrics.ResultNotFound)), 0)
	assert.Zero(t, testutil.ToFloat64(m.Deletions.WithLabelValues(metrics.ResultError)))
}

func TestDeleteForeignCallerLeavesRecord(t *testing.T) {
	svc, store := newTestJobService(t)

	store.EXPECT().Fetch(gomock.Any(), "job-1").Return(&model.JobRecord{
		ID:   "job-1",
		Meta: model.JobMeta{CreatedBy: "u1@example.com"},
	}, nil)

	err := svc.Delete(context.Background(), "u2@example.com", "job-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsPermission(err))
}

func TestFieldSizes(t *testing.T) {
	svc, store := newTestJobService(t)

	store.EXPECT().Fetch(gomock.Any(), "job-1").Return(&model.JobRecord{
		ID:   "job-1",
		Meta: model.JobMeta{CreatedBy: "u1@example.com"},
	}, nil)
	store.EXPECT().FieldSizes(gomock.Any(), "job-1").Return(map[string]int64{
		"data":   1200,
		"result": 34000,
		"status": 8,
	}, nil)

	sizes, total, err := svc.FieldSizes(context.Background(), "u1@example.com", "job-1")
	require.NoError(t, err)
	assert.EqualValues(t, 35208, total)
	assert.EqualValues(t, 34000, sizes["result"])
}

func TestReclaim(t *testing.T) {
	svc, store := newTestJobService(t)

	gomock.InOrder(
		store.EXPECT().Cancel(gomock.Any(), "orphan").Return(nil),
		store.EXPECT().Delete(gomock.Any(), "orphan").Return(nil),
	)
	require.NoError(t, svc.Reclaim(context.Background(), "orphan"))
}
