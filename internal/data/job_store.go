// Package data provides store adapters for the jobs API. The job store is a
// Redis-backed implementation speaking the same hash layout the execution
// engine's workers read and write.
package data

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nemde-api/jobs-api/internal/codec"
	"github.com/nemde-api/jobs-api/internal/domain/model"
	apperrors "github.com/nemde-api/jobs-api/internal/errors"
)

const (
	// jobKeyPrefix is the job-record namespace in the shared store.
	jobKeyPrefix = "rq:job:"
	// queueKeyPrefix is the per-queue pending list namespace.
	queueKeyPrefix = "rq:queue:"
)

// Hash field names inside each job record. The data and meta fields hold
// zlib-compressed JSON blobs; the rest are scalars.
const (
	fieldData       = "data"
	fieldMeta       = "meta"
	fieldStatus     = "status"
	fieldCreatedAt  = "created_at"
	fieldEnqueuedAt = "enqueued_at"
	fieldStartedAt  = "started_at"
	fieldEndedAt    = "ended_at"
	fieldTimeout    = "timeout"
	fieldResult     = "result"
	fieldExcInfo    = "exc_info"
	fieldOrigin     = "origin"
	fieldResultTTL  = "result_ttl"
	fieldFailureTTL = "failure_ttl"
)

// jobPayload is the serialized form of the data blob: the execution entry
// point plus the validated request it will be invoked with.
type jobPayload struct {
	Func string            `json:"func"`
	Args *model.JobRequest `json:"args"`
}

// RedisJobStore implements core.JobStore against a Redis-backed job store
// and queue.
type RedisJobStore struct {
	client redis.UniversalClient
	queue  string
}

// NewRedisJobStore creates a job store bound to the given queue name.
func NewRedisJobStore(client redis.UniversalClient, queue string) *RedisJobStore {
	return &RedisJobStore{client: client, queue: queue}
}

func jobKey(id string) string {
	return jobKeyPrefix + id
}

func (s *RedisJobStore) queueKey() string {
	return queueKeyPrefix + s.queue
}

// Create persists a new job record as a hash under the job namespace.
func (s *RedisJobStore) Create(ctx context.Context, rec *model.JobRecord) error {
	data, err := codec.Encode(jobPayload{Func: rec.Func, Args: rec.Args})
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode job payload")
	}
	meta, err := codec.Encode(rec.Meta)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode job meta")
	}

	fields := map[string]any{
		fieldData:       data,
		fieldMeta:       meta,
		fieldStatus:     string(rec.Status),
		fieldCreatedAt:  formatTime(rec.CreatedAt),
		fieldTimeout:    strconv.FormatInt(int64(rec.Timeout/time.Second), 10),
		fieldOrigin:     s.queue,
		fieldResultTTL:  strconv.FormatInt(int64(rec.ResultTTL/time.Second), 10),
		fieldFailureTTL: strconv.FormatInt(int64(rec.FailureTTL/time.Second), 10),
	}

	if err := s.client.HSet(ctx, jobKey(rec.ID), fields).Err(); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeStore, "create job %s", rec.ID)
	}
	return nil
}

// Enqueue stamps the record and pushes its id onto the queue's pending list.
func (s *RedisJobStore) Enqueue(ctx context.Context, rec *model.JobRecord) error {
	now := time.Now().UTC()

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, jobKey(rec.ID), map[string]any{
		fieldEnqueuedAt: formatTime(now),
		fieldStatus:     string(model.JobStatusQueued),
	})
	pipe.RPush(ctx, s.queueKey(), rec.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeEngine, "enqueue job %s", rec.ID)
	}

	rec.EnqueuedAt = &now
	rec.Status = model.JobStatusQueued
	return nil
}

// Fetch retrieves and decodes a full job record.
func (s *RedisJobStore) Fetch(ctx context.Context, id string) (*model.JobRecord, error) {
	fields, err := s.client.HGetAll(ctx, jobKey(id)).Result()
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeStore, "fetch job %s", id)
	}
	if len(fields) == 0 {
		return nil, apperrors.NotFound("job not found")
	}
	return s.recordFromFields(id, fields)
}

// FetchMeta reads only the meta field of a record. A missing field (or a
// record deleted since it was scanned) yields (nil, nil).
func (s *RedisJobStore) FetchMeta(ctx context.Context, id string) (*model.JobMeta, error) {
	blob, err := s.client.HGet(ctx, jobKey(id), fieldMeta).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeStore, "fetch meta %s", id)
	}

	var meta model.JobMeta
	if err := codec.Decode([]byte(blob), &meta); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeInternal, "decode meta %s", id)
	}
	return &meta, nil
}

// FetchStatusFields reads the scalar status fields of a record without
// touching the payload or result blobs.
func (s *RedisJobStore) FetchStatusFields(ctx context.Context, id string) (*model.JobRecord, error) {
	keys := []string{fieldStatus, fieldCreatedAt, fieldEnqueuedAt, fieldStartedAt, fieldEndedAt, fieldTimeout}
	vals, err := s.client.HMGet(ctx, jobKey(id), keys...).Result()
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeStore, "fetch status fields %s", id)
	}

	fields := make(map[string]string, len(keys))
	present := false
	for i, v := range vals {
		if str, ok := v.(string); ok {
			fields[keys[i]] = str
			present = true
		}
	}
	if !present {
		return nil, apperrors.NotFound("job not found")
	}
	return s.recordFromFields(id, fields)
}

// Cancel transitions a job out of its queue. Terminal and missing jobs are
// left untouched so concurrent reclamation attempts converge.
func (s *RedisJobStore) Cancel(ctx context.Context, id string) error {
	status, err := s.client.HGet(ctx, jobKey(id), fieldStatus).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return apperrors.Wrapf(err, apperrors.ErrCodeStore, "cancel job %s", id)
	}
	if model.JobStatus(status).Terminal() {
		return nil
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, jobKey(id), fieldStatus, string(model.JobStatusCancelled))
	pipe.LRem(ctx, s.queueKey(), 0, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeStore, "cancel job %s", id)
	}
	return nil
}

// Delete removes the record and any queue entry pointing at it.
func (s *RedisJobStore) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, jobKey(id))
	pipe.LRem(ctx, s.queueKey(), 0, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeStore, "delete job %s", id)
	}
	return nil
}

// ScanJobIDs enumerates every job id in the record namespace via SCAN.
func (s *RedisJobStore) ScanJobIDs(ctx context.Context) ([]string, error) {
	var ids []string
	iter := s.client.Scan(ctx, 0, jobKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), jobKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStore, "scan job keys")
	}
	return ids, nil
}

// FieldSizes reports the stored byte size of every hash field for a job.
func (s *RedisJobStore) FieldSizes(ctx context.Context, id string) (map[string]int64, error) {
	fields, err := s.client.HGetAll(ctx, jobKey(id)).Result()
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeStore, "field sizes %s", id)
	}
	if len(fields) == 0 {
		return nil, apperrors.NotFound("job not found")
	}

	sizes := make(map[string]int64, len(fields))
	for k, v := range fields {
		sizes[k] = int64(len(v))
	}
	return sizes, nil
}

// Health checks connectivity to the store.
func (s *RedisJobStore) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// recordFromFields decodes a hash field map into a JobRecord. Blob fields
// are optional so the same decoder serves full and field-subset reads.
func (s *RedisJobStore) recordFromFields(id string, fields map[string]string) (*model.JobRecord, error) {
	rec := &model.JobRecord{
		ID:     id,
		Status: model.JobStatus(fields[fieldStatus]),
	}

	if v, ok := fields[fieldCreatedAt]; ok {
		t, err := parseTime(v)
		if err != nil {
			return nil, apperrors.Wrapf(err, apperrors.ErrCodeInternal, "parse created_at for job %s", id)
		}
		rec.CreatedAt = t
	}
	rec.EnqueuedAt = parseTimePtr(fields[fieldEnqueuedAt])
	rec.StartedAt = parseTimePtr(fields[fieldStartedAt])
	rec.EndedAt = parseTimePtr(fields[fieldEndedAt])

	if v, ok := fields[fieldTimeout]; ok && v != "" {
		secs, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, apperrors.Wrapf(err, apperrors.ErrCodeInternal, "parse timeout for job %s", id)
		}
		rec.Timeout = time.Duration(secs) * time.Second
	}

	if blob, ok := fields[fieldData]; ok && blob != "" {
		var payload jobPayload
		if err := codec.Decode([]byte(blob), &payload); err != nil {
			return nil, apperrors.Wrapf(err, apperrors.ErrCodeInternal, "decode payload for job %s", id)
		}
		rec.Func = payload.Func
		rec.Args = payload.Args
	}
	if blob, ok := fields[fieldMeta]; ok && blob != "" {
		if err := codec.Decode([]byte(blob), &rec.Meta); err != nil {
			return nil, apperrors.Wrapf(err, apperrors.ErrCodeInternal, "decode meta for job %s", id)
		}
	}
	if blob, ok := fields[fieldResult]; ok && blob != "" {
		if err := codec.Decode([]byte(blob), &rec.Result); err != nil {
			return nil, apperrors.Wrapf(err, apperrors.ErrCodeInternal, "decode result for job %s", id)
		}
	}
	rec.FailureInfo = fields[fieldExcInfo]

	return rec, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", v, err)
	}
	return t, nil
}

func parseTimePtr(v string) *time.Time {
	if v == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return nil
	}
	return &t
}
