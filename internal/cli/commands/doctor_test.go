package commands

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/assetlink/internal/cli/config"
	"github.com/leapstack-labs/assetlink/internal/objectstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDoctorCommand(t *testing.T) {
	cmd := NewDoctorCommand()

	assert.Equal(t, "doctor", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")
}

func statuses(out DoctorOutput) map[string]string {
	m := make(map[string]string, len(out.HealthChecks))
	for _, c := range out.HealthChecks {
		m[c.CheckID] = c.Status
	}
	return m
}

func TestDoctor_UnconfiguredRemotesWarn(t *testing.T) {
	cfg := testConfig(t)

	stdout, _, err := execute(t, cfg, NewDoctorCommand())
	require.NoError(t, err)

	var out DoctorOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, map[string]string{
		"CF01": checkPass,
		"PL01": checkWarn,
		"BK01": checkWarn,
		"ST01": checkPass,
		"ST02": checkPass,
	}, statuses(out))
	assert.Equal(t, 80, out.Score)
	assert.Equal(t, 2, out.IssueCount)
	assert.Len(t, out.Recommendations, 2)
	assert.DirExists(t, cfg.Cache.Dir)
	assert.FileExists(t, cfg.Cache.StatePath)
}

func platformServer(t *testing.T, status int) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			http.Error(w, `{"errorMessage":"denied"}`, status)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		dsl, _ := body["dsl"].(map[string]any)
		assert.Equal(t, float64(1), dsl["size"])
		_ = json.NewEncoder(w).Encode(map[string]any{"approximateCount": 42, "entities": []any{}})
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestDoctor_PlatformReachable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Platform.BaseURL = platformServer(t, http.StatusOK)
	cfg.Platform.APIToken = "secret"

	stdout, _, err := execute(t, cfg, NewDoctorCommand())
	require.NoError(t, err)

	var out DoctorOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.Equal(t, "PL01", out.HealthChecks[1].CheckID)
	assert.Equal(t, checkPass, out.HealthChecks[1].Status)
	assert.Equal(t, []string{"42 assets visible"}, out.HealthChecks[1].Details)
}

func TestDoctor_PlatformFailureFailsCommand(t *testing.T) {
	cfg := testConfig(t)
	cfg.Platform.BaseURL = platformServer(t, http.StatusUnauthorized)
	cfg.Platform.APIToken = "wrong"

	stdout, _, err := execute(t, cfg, NewDoctorCommand())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 health checks failed")

	var out DoctorOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, checkError, statuses(out)["PL01"])
	assert.Contains(t, out.Recommendations, getRecommendation("PL01"))
}

type fakeLister struct {
	objects []objectstore.Object
	err     error
	calls   int
}

func (f *fakeLister) ListObjects(_ context.Context, _, _, _ string) (objectstore.ObjectPage, error) {
	f.calls++
	if f.err != nil {
		return objectstore.ObjectPage{}, f.err
	}
	return objectstore.ObjectPage{Objects: f.objects}, nil
}

func TestCheckBucket(t *testing.T) {
	tests := []struct {
		name    string
		lister  *fakeLister
		status  string
		details []string
	}{
		{
			name:    "listable",
			lister:  &fakeLister{objects: []objectstore.Object{{Key: "exports/customers.csv"}}},
			status:  checkPass,
			details: []string{"first key: exports/customers.csv"},
		},
		{
			name:    "empty prefix",
			lister:  &fakeLister{},
			status:  checkWarn,
			details: []string{"s3://tech-challenge/exports/ is empty"},
		},
		{
			name:    "access denied",
			lister:  &fakeLister{err: errors.New("AccessDenied")},
			status:  checkError,
			details: []string{"AccessDenied"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := checkBucket(context.Background(), tt.lister, "tech-challenge", "exports/")
			assert.Equal(t, "BK01", check.CheckID)
			assert.Equal(t, tt.status, check.Status)
			assert.Equal(t, tt.details, check.Details)
			assert.Equal(t, 1, tt.lister.calls)
		})
	}
}

func TestCheckCacheDir(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Dir = filepath.Join(t.TempDir(), "cache")
	check := checkCacheDir(cfg)
	assert.Equal(t, checkPass, check.Status)
	entries, err := os.ReadDir(cfg.Cache.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch file removed")

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))
	cfg.Cache.Dir = filepath.Join(blocker, "cache")
	assert.Equal(t, checkError, checkCacheDir(cfg).Status)

	cfg.Cache.Backend = config.BackendSQLite
	assert.Equal(t, checkPass, checkCacheDir(cfg).Status)
}

func TestCheckConfig(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, checkError, checkConfig(cfg).Status)

	cfg.Datasets = map[string]config.DatasetConfig{"postgres": {Prefix: "default/postgres/1"}}
	assert.Equal(t, checkWarn, checkConfig(cfg).Status)

	cfg.Links = []config.LinkConfig{{Source: "postgres", Target: "staging"}}
	assert.Equal(t, checkPass, checkConfig(cfg).Status)
}

func TestCalculateHealthScore(t *testing.T) {
	tests := []struct {
		name   string
		checks []HealthCheck
		want   int
	}{
		{"no checks returns 100", nil, 100},
		{"all passing returns 100", []HealthCheck{{Status: checkPass}, {Status: checkPass}}, 100},
		{"warnings reduce score", []HealthCheck{{Status: checkWarn}, {Status: checkPass}}, 90},
		{"errors reduce score more", []HealthCheck{{Status: checkError}}, 60},
		{"clamped at 0", []HealthCheck{{Status: checkError}, {Status: checkError}, {Status: checkError}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calculateHealthScore(tt.checks))
		})
	}
}

func TestGetRecommendation(t *testing.T) {
	for _, id := range []string{"CF01", "PL01", "BK01", "ST01", "ST02"} {
		assert.NotEmpty(t, getRecommendation(id), "expected recommendation for %s", id)
	}
	assert.Empty(t, getRecommendation("UNKNOWN"))

	recs := generateRecommendations([]HealthCheck{
		{CheckID: "PL01", Status: checkError},
		{CheckID: "BK01", Status: checkPass},
		{CheckID: "ST01", Status: checkWarn},
	})
	assert.Equal(t, []string{getRecommendation("PL01"), getRecommendation("ST01")}, recs)
}
