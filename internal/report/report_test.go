package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalops/botvet/internal/botclient"
	"github.com/evalops/botvet/internal/conversation"
	"github.com/evalops/botvet/internal/judge"
)

func sampleReport() *Report {
	return &Report{
		Persona:    "IDEAL_CANDIDATE",
		SkillID:    "S1",
		Assessment: &botclient.Assessment{ID: "assessment-1", ResultURL: "https://example.com/r?secret=sk"},
		FinalSession: &botclient.SessionSnapshot{
			ID:    "session-1",
			State: botclient.SessionGraded,
		},
		Transcript: []conversation.Turn{
			{Speaker: conversation.SpeakerBot, Text: "Tell me about X"},
			{Speaker: conversation.SpeakerPersona, Text: "X is..."},
		},
		Judge:     &judge.Evaluation{Summary: "solid interview"},
		CreatedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestFileWriter(t *testing.T) {
	dir := t.TempDir()
	w := NewFileWriter(dir, false, nil)

	require.NoError(t, w.Write(t.Context(), sampleReport()))

	path := filepath.Join(dir, "report-s1-ideal_candidate-assessment-1-20260314-093000.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "IDEAL_CANDIDATE", decoded.Persona)
	assert.Len(t, decoded.Transcript, 2)
	assert.Equal(t, "solid interview", decoded.Judge.Summary)
}

func TestFileWriter_Compressed(t *testing.T) {
	dir := t.TempDir()
	w := NewFileWriter(dir, true, nil)

	require.NoError(t, w.Write(t.Context(), sampleReport()))

	path := filepath.Join(dir, "report-s1-ideal_candidate-assessment-1-20260314-093000.json.gz")
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)

	var decoded Report
	require.NoError(t, json.NewDecoder(gz).Decode(&decoded))
	assert.Equal(t, "S1", decoded.SkillID)
}

func TestFilename_SanitizesUnsafeNames(t *testing.T) {
	r := sampleReport()
	r.Persona = "Nervous Candidate (v2)"
	r.SkillID = "skills/go"

	name := Filename(r, false)
	assert.Equal(t, "report-skillsgo-nervous-candidate-v2-assessment-1-20260314-093000.json", name)
}
