package codec

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nemde-api/jobs-api/internal/domain/model"
)

func TestEncodeDecodeJobRequest(t *testing.T) {
	req := &model.JobRequest{
		CaseID: "20201101123",
		Options: model.JobOptions{
			RunMode:          "target",
			SolutionElements: []string{"TraderSolution", "PeriodSolution"},
			Label:            "rerun-7",
		},
		Patches: []model.Patch{
			{Path: "NEMSPDCaseFile.NemSpdInputs", Value: json.RawMessage(`{"Demand": 100}`)},
		},
	}

	blob, err := Encode(req)
	require.NoError(t, err)

	var got model.JobRequest
	require.NoError(t, Decode(blob, &got))

	// Raw JSON values are compacted in transit, so compare them
	// structurally and everything else strictly.
	assert.Equal(t, req.CaseID, got.CaseID)
	assert.Equal(t, req.Options, got.Options)
	require.Len(t, got.Patches, 1)
	assert.Equal(t, req.Patches[0].Path, got.Patches[0].Path)
	assert.JSONEq(t, string(req.Patches[0].Value), string(got.Patches[0].Value))
}

func TestEncodeProducesZlibJSON(t *testing.T) {
	blob, err := Encode(map[string]string{"created_by": "user@example.com"})
	require.NoError(t, err)

	// The stored blob must be readable by any standard zlib reader, since
	// workers decode the same fields independently.
	zr, err := zlib.NewReader(bytes.NewReader(blob))
	require.NoError(t, err)
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.JSONEq(t, `{"created_by": "user@example.com"}`, string(raw))
}

func TestDecodeRejectsGarbage(t *testing.T) {
	var out map[string]any
	assert.Error(t, Decode([]byte("not zlib"), &out))
}

func TestDecodeRejectsNonJSONPayload(t *testing.T) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, err := zw.Write([]byte("plain text"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	var out map[string]any
	assert.Error(t, Decode(buf.Bytes(), &out))
}
